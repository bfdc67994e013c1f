package main

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/spf13/cobra"
)

func newRolesCmd(g *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "roles <member-id>",
		Short: "Show which configured roles a guild member holds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := readToken(g.tokenPath)
			if err != nil {
				return err
			}

			var result map[string]bool
			endpoint := g.baseURL + "/roles/" + url.PathEscape(args[0])
			if err := doJSON(cmd.Context(), http.MethodGet, endpoint, token, nil, &result); err != nil {
				return err
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), result)
			}
			names := make([]string, 0, len(result))
			for name := range result {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				mark := "no"
				if result[name] {
					mark = "yes"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", name, mark)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}
