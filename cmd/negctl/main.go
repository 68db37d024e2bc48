// negctl is a CLI for inspecting and exercising a negotiatord peer.
// Each command performs a single operation, making it composable for scripts.
//
// Commands:
//
//	negctl advert --server URL
//	negctl negotiate --server URL (--file adv.json | --component 'ns:id;v=2;min=1' ...)
//	negctl check --server-file a.json --client-file b.json
//
// Examples:
//
//	negctl advert --server http://localhost:8080
//	negctl negotiate --component 'netneg:handshake;v=2' --component 'netneg:telemetry;optional'
//	NEGCTL_SERVER=http://localhost:8080 negctl negotiate --file client.json -q
//	negctl check --server-file server.json --client-file client.json
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// errNegotiationFailed is returned after the failures have been printed,
// so main only has to set the exit code.
var errNegotiationFailed = errors.New("negotiation failed")

func main() {
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		if !errors.Is(err, errNegotiationFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "negctl",
		Short: "negctl - component negotiation client",
		Long: `Inspect a peer's component advertisement and negotiate against it.

Commands:
  negctl advert       Print the server advertisement
  negctl negotiate    Negotiate a client advertisement with the server
  negctl check        Negotiate two advertisement files locally`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().String("server", "", "negotiatord base URL (default http://localhost:8080)")
	_ = v.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))

	rootCmd.PersistentFlags().Duration("timeout", 0, "request timeout (default 30s)")
	_ = v.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))

	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	_ = v.BindPFlag("no_color", rootCmd.PersistentFlags().Lookup("no-color"))

	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "only print the essential result")
	_ = v.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		loadConfig(v)
	}

	rootCmd.AddCommand(
		newAdvertCmd(v),
		newNegotiateCmd(v),
		newCheckCmd(v),
	)

	return rootCmd
}
