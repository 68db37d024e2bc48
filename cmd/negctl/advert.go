package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newAdvertCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "advert",
		Short: "Print the server advertisement",
		Long: `Fetch and print the components the server advertises at /.well-known/components.

Examples:
  negctl advert --server http://localhost:8080
  negctl advert -q                              # components only`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(v)
			out := newPrinter(cmd.OutOrStdout(), cfg)

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
			defer cancel()

			advert, err := newClient(cfg).advertisement(ctx)
			if err != nil {
				return err
			}

			out.info("%s speaks protocol %s", cfg.Server, advert.ProtocolVersion)
			out.components(advert.Components)
			return nil
		},
	}
}
