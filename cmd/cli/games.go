package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"romvault/pkg/models"
)

type gameListResponse struct {
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
	Items  []models.GameDoc `json:"items"`
}

func newGamesCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "games",
		Short: "Browse the game catalog",
	}
	cmd.AddCommand(newGamesListCmd(g), newGamesGetCmd(g))
	return cmd
}

func newGamesListCmd(g *globalFlags) *cobra.Command {
	var (
		q, system, category string
		limit, offset       int
		asJSON              bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List games",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			if q != "" {
				params.Set("q", q)
			}
			if system != "" {
				params.Set("system", system)
			}
			if category != "" {
				params.Set("category", category)
			}
			params.Set("limit", strconv.Itoa(limit))
			params.Set("offset", strconv.Itoa(offset))

			var resp gameListResponse
			if err := doJSON(cmd.Context(), http.MethodGet, g.baseURL+"/games?"+params.Encode(), "", nil, &resp); err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSYSTEM\tCATEGORY\tSOURCE")
			for _, it := range resp.Items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", it.ID, it.Name, it.System, it.Category, it.Source)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d (offset %d)\n", len(resp.Items), resp.Total, resp.Offset)
			return nil
		},
	}

	cmd.Flags().StringVarP(&q, "query", "q", "", "name contains")
	cmd.Flags().StringVar(&system, "system", "", "platform tag, e.g. nes")
	cmd.Flags().StringVar(&category, "category", "", "genre")
	cmd.Flags().IntVar(&limit, "limit", 20, "page size (max 100)")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func newGamesGetCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc models.GameDoc
			if err := doJSON(cmd.Context(), http.MethodGet, g.baseURL+"/games/"+url.PathEscape(args[0]), "", nil, &doc); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), doc)
		},
	}
}
