package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dompeassist/internal/search"
)

func newSearchCmd(root *rootOptions) *cobra.Command {
	var (
		limit    int
		endpoint string
		raw      bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a web search and print the extracted results as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if endpoint == "" {
				endpoint = cfg.Search.Endpoint
			}
			provider := search.NewProvider(search.Options{
				Endpoint:        endpoint,
				CompanyName:     cfg.Search.CompanyName,
				OfficialSiteURL: cfg.Search.OfficialSiteURL,
				ResultLimit:     limit,
				Timeout:         cfg.Search.Timeout(),
			})

			query := strings.Join(args, " ")
			if !raw {
				query = search.RewriteQuery(query, cfg.Search.CompanyName)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Searching for: %s\n", query)

			results, err := provider.Fetch(cmd.Context(), query)
			if err != nil {
				return fmt.Errorf("search %q: %w", query, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Extracted %d results\n", len(results))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", search.ProbeResultLimit, "maximum number of results")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "override the search endpoint")
	cmd.Flags().BoolVar(&raw, "raw", false, "send the query without the company suffix")
	return cmd
}
