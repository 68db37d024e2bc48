package main

import (
	"context"
	"fmt"
	"log/slog"

	"netneg/internal/config"
	"netneg/internal/reconcile"
	"netneg/internal/source"
)

// reloadAdvertisement re-reads the configured advertisement and swaps it
// into src, logging what changed. Only the component list is swapped;
// settings read at startup such as the port and protocol revision stay in
// effect.
func reloadAdvertisement(ctx context.Context, src *source.Static, logger *slog.Logger) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	desired, err := cfg.BuildAdvertisement()
	if err != nil {
		return fmt.Errorf("building advertisement: %w", err)
	}
	current, err := src.Advertisement(ctx)
	if err != nil {
		return err
	}

	diff := reconcile.DiffAdvertisements(current, desired)
	if diff.IsEmpty() {
		logger.Info("advertisement unchanged")
		return nil
	}

	if err := src.Replace(desired); err != nil {
		return err
	}

	logger.Info("advertisement reloaded",
		slog.Int("added", len(diff.ToAdd)),
		slog.Int("removed", len(diff.ToRemove)),
		slog.Int("updated", len(diff.ToUpdate)),
	)
	for _, u := range diff.ToUpdate {
		logger.Debug("component updated",
			slog.String("component", string(u.ID)),
			slog.String("old", u.Old.String()),
			slog.String("new", u.New.String()),
		)
	}
	if breaking := diff.Breaking(); len(breaking) > 0 {
		logger.Warn("advertisement change may reject previously compatible peers",
			slog.Any("components", breaking))
	}
	return nil
}
