package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"romvault/internal/auth"
)

func newTokenCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage service tokens",
	}
	cmd.AddCommand(newTokenIssueCmd(g))
	return cmd
}

func newTokenIssueCmd(g *globalFlags) *cobra.Command {
	var (
		ttl  time.Duration
		save bool
	)

	cmd := &cobra.Command{
		Use:   "issue <subject>",
		Short: "Sign a token with the configured secret",
		Long: `Sign a bearer token for /roles and /sync/run using auth.jwt_secret
(ROMVAULT_AUTH_JWT_SECRET). Use --save to store it for later commands.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Auth.JWTDuration
			}

			ts := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, ttl)
			tok, exp, err := ts.Sign(args[0])
			if err != nil {
				return err
			}

			if save {
				if err := saveToken(g.tokenPath, tokenData{Token: tok, Expires: exp}); err != nil {
					return fmt.Errorf("save token: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "saved to %s (expires %s)\n", g.tokenPath, exp.Format(time.RFC3339))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default auth.jwt_ttl)")
	cmd.Flags().BoolVar(&save, "save", false, "write the token to --token-file instead of stdout")
	return cmd
}
