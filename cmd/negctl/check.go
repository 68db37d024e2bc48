package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"netneg/internal/negotiation"
)

func newCheckCmd(v *viper.Viper) *cobra.Command {
	var serverFile, clientFile string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Negotiate two advertisement files locally",
		Long: `Run the negotiation between two advertisement files without a server.
Exits 1 when negotiation fails.

Examples:
  negctl check --server-file server.json --client-file client.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(v)
			out := newPrinter(cmd.OutOrStdout(), cfg)

			if serverFile == "" || clientFile == "" {
				return fmt.Errorf("--server-file and --client-file are required")
			}

			server, err := readAdvertisement(serverFile)
			if err != nil {
				return err
			}
			client, err := readAdvertisement(clientFile)
			if err != nil {
				return err
			}

			result := negotiation.Negotiate(server.Components, client.Components)
			if !result.Success {
				out.failure("%s", negotiation.NegotiationFailed)
				for _, f := range result.SortedFailures() {
					out.rejected(string(f.Code), string(f.Side), f.Error())
				}
				return errNegotiationFailed
			}

			out.success("negotiated %d component(s)", len(result.Components))
			out.agreed(result.Components)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverFile, "server-file", "", "server advertisement JSON file")
	cmd.Flags().StringVar(&clientFile, "client-file", "", "client advertisement JSON file")

	return cmd
}
