package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"romvault/internal/app"
	"romvault/pkg/logging"
)

func newSyncCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run or watch catalog syncs",
	}
	cmd.AddCommand(newSyncRunCmd(g), newSyncTriggerCmd(g), newSyncWatchCmd(g))
	return cmd
}

func newSyncRunCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one sync in this process against the local database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Runner.Run(cmd.Context())
			if perr := printJSON(cmd.OutOrStdout(), report); perr != nil {
				return errors.Join(err, perr)
			}
			return err
		},
	}
}

func newSyncTriggerCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger",
		Short: "Ask the running api-server to start a sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := readToken(g.tokenPath)
			if err != nil {
				return err
			}
			var resp map[string]any
			if err := doJSON(cmd.Context(), http.MethodPost, g.baseURL+"/sync/run", token, nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
}

func newSyncWatchCmd(g *globalFlags) *cobra.Command {
	var reconnect bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream sync reports from the api-server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint, err := websocketURL(g.baseURL, "/ws")
			if err != nil {
				return err
			}
			log := logging.Default()

			for {
				err := watch(cmd.Context(), endpoint, cmd.OutOrStdout())
				if cmd.Context().Err() != nil {
					return nil
				}
				if !reconnect {
					return err
				}
				log.Warn().Err(err).Msg("disconnected, reconnecting")
				select {
				case <-cmd.Context().Done():
					return nil
				case <-time.After(time.Second):
				}
			}
		},
	}
	cmd.Flags().BoolVar(&reconnect, "reconnect", false, "keep reconnecting after the connection drops")
	return cmd
}

func watch(ctx context.Context, endpoint string, out io.Writer) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	logging.Default().Info().Str("url", endpoint).Msg("watching sync events")
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(msg))
	}
}
