// Command romvault is the operator CLI: it talks to a running api-server for
// roles and games, signs service tokens, and can run a sync in-process.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"romvault/pkg/logging"
	"romvault/pkg/utils"
)

const defaultBaseURL = "http://localhost:8080"

type globalFlags struct {
	baseURL   string
	tokenPath string
	config    string
	verbose   bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "romvault",
		Short:         "ROM catalog sync and Discord role check tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
				logging.SetDefault(logging.Default().Level(zerolog.DebugLevel))
			}
		},
	}

	root.PersistentFlags().StringVar(&g.baseURL, "api", defaultBaseURL, "API base URL")
	root.PersistentFlags().StringVar(&g.tokenPath, "token-file", defaultTokenPath(), "token file path")
	root.PersistentFlags().StringVar(&g.config, "config", "", "config file (default ./romvault.yaml)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newRolesCmd(g),
		newGamesCmd(g),
		newTokenCmd(g),
		newSyncCmd(g),
	)
	return root
}

func (g *globalFlags) loadConfig() (utils.Config, error) {
	v := viper.New()
	if g.config != "" {
		v.SetConfigFile(g.config)
	}
	return utils.LoadFrom(v, ".env", ".env.local")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logging.Default().Error().Err(err).Msg("command failed")
		cancel()
		os.Exit(1)
	}
}
