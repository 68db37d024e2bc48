package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"netneg/internal/model"
)

func newNegotiateCmd(v *viper.Viper) *cobra.Command {
	var (
		file            string
		components      []string
		protocolVersion string
	)

	cmd := &cobra.Command{
		Use:   "negotiate",
		Short: "Negotiate a client advertisement with the server",
		Long: `Post a client advertisement to /negotiations and print the agreed components,
or every rejected component. Exits 1 when negotiation fails.

Examples:
  negctl negotiate --file client.json
  negctl negotiate --component 'netneg:handshake;v=2;min=1' --component 'netneg:telemetry;optional'
  negctl negotiate --component 'netneg:handshake;max=3' --protocol-version v1.0.0 -q`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(v)
			out := newPrinter(cmd.OutOrStdout(), cfg)

			if (file == "") == (len(components) == 0) {
				return fmt.Errorf("exactly one of --file or --component is required")
			}

			var advertised []model.Component
			if file != "" {
				advert, err := readAdvertisement(file)
				if err != nil {
					return err
				}
				advertised = advert.Components
				if protocolVersion == "" {
					protocolVersion = advert.ProtocolVersion
				}
			} else {
				for _, s := range components {
					c, err := parseComponentFlag(s)
					if err != nil {
						return fmt.Errorf("--component %q: %w", s, err)
					}
					advertised = append(advertised, c)
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
			defer cancel()

			session, failure, err := newClient(cfg).negotiate(ctx, protocolVersion, advertised)
			if err != nil {
				return err
			}

			if failure != nil {
				out.failure("%s", failure.Error.Code)
				for _, f := range failure.Failures {
					out.rejected(f.Code, f.Side, f.Message)
				}
				return errNegotiationFailed
			}

			out.success("negotiated %d component(s), id %s", len(session.Components), session.NegotiationID)
			out.agreed(session.Components)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "advertisement JSON file")
	cmd.Flags().StringArrayVarP(&components, "component", "c", nil, "component as id;v=N;min=N;max=N;flow=F;optional (repeatable)")
	cmd.Flags().StringVar(&protocolVersion, "protocol-version", "", "handshake revision to request (default: the server's)")

	return cmd
}
