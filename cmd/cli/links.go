package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zfogg/biolink/pkg/client"
)

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Manage your profile links",
}

var linksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your links in display order",
	RunE: func(cmd *cobra.Command, args []string) error {
		links, err := client.NewLinksStore(api, notifier).Fetch(cmd.Context())
		if err != nil {
			return err
		}
		if emit(links) {
			return nil
		}
		if len(links) == 0 {
			fmt.Println(dim("No links yet. Add one with `biolink links add <url> <title>`."))
			return nil
		}
		for _, l := range links {
			fmt.Printf("%2d. %s %s  %s%s\n", l.Order, bold(l.Title), cyan(l.URL),
				dim(fmt.Sprintf("%d clicks · %s", l.ClickCount, l.ID)), visibility(l.IsVisible))
		}
		return nil
	},
}

var linksAddCmd = &cobra.Command{
	Use:   "add <url> <title>",
	Short: "Add a link to the end of your list",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		link, err := client.NewLinksStore(api, notifier).Create(cmd.Context(), client.LinkInput{URL: args[0], Title: args[1]})
		if err != nil {
			return err
		}
		if !emit(link) {
			success("Added %s (%s)", bold(link.Title), link.ID)
		}
		return nil
	},
}

var linksRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a link and its click history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.NewLinksStore(api, notifier).Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		success("Link deleted")
		return nil
	},
}

func init() {
	linksCmd.AddCommand(linksListCmd, linksAddCmd, linksRmCmd)
}
