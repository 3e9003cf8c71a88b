package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zfogg/biolink/pkg/client"
)

var (
	archiveType string
	archiveFrom string
	archiveTo   string
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "View and archive your profile analytics",
}

var analyticsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show page view and click totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := client.NewAnalyticsStore(api, notifier).Fetch(cmd.Context())
		if err != nil {
			return err
		}
		if emit(a) {
			return nil
		}
		fmt.Printf("%s %d\n", bold("Page views: "), len(a.PageViews))
		fmt.Printf("%s %d\n", bold("Link clicks:"), len(a.LinkClicks))
		fmt.Printf("%s %d\n", bold("Icon clicks:"), len(a.IconClicks))
		if len(a.PageViews) > 0 {
			fmt.Println(dim("Last view " + a.PageViews[0].CreatedAt.Local().Format(time.RFC1123)))
		}
		return nil
	},
}

var analyticsReferrersCmd = &cobra.Command{
	Use:   "referrers",
	Short: "Show page views per traffic source",
	RunE: func(cmd *cobra.Command, args []string) error {
		refs, err := client.NewAnalyticsStore(api, notifier).FetchReferrers(cmd.Context())
		if err != nil {
			return err
		}
		if emit(refs) {
			return nil
		}
		for _, r := range refs {
			fmt.Printf("%-14s %6d\n", r.Label, r.Count)
		}
		return nil
	},
}

var analyticsArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Export analytics to cold storage and delete them",
	Long: `Exports the selected analytics events to Parquet files in object storage,
then deletes them and adjusts click counters. Without --from/--to everything
is archived and counters are reset to zero.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := client.DeleteOptions{Type: archiveType}
		var err error
		if opts.DateFrom, err = parseDay(archiveFrom); err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
		if opts.DateTo, err = parseDay(archiveTo); err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}

		res, err := client.NewAnalyticsStore(api, notifier).Delete(cmd.Context(), opts)
		if err != nil {
			return err
		}
		if !emit(res) {
			success("%s", res.Message)
		}
		return nil
	},
}

func parseDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func init() {
	analyticsArchiveCmd.Flags().StringVar(&archiveType, "type", "", "Only archive one category: pageView, linkClick or iconClick")
	analyticsArchiveCmd.Flags().StringVar(&archiveFrom, "from", "", "Start date (YYYY-MM-DD)")
	analyticsArchiveCmd.Flags().StringVar(&archiveTo, "to", "", "End date (YYYY-MM-DD)")

	analyticsCmd.AddCommand(analyticsGetCmd, analyticsReferrersCmd, analyticsArchiveCmd)
}
