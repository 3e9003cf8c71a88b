package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zfogg/biolink/pkg/client"
)

var profileCmd = &cobra.Command{
	Use:   "profile <slug>",
	Short: "Show a public profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := client.NewUserStore(api, notifier).FetchProfile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if emit(p) {
			return nil
		}

		fmt.Printf("%s  %s\n", bold(p.Name), dim("@"+p.Slug))
		if p.Description != "" {
			fmt.Println(p.Description)
		}
		fmt.Println()
		for _, l := range p.Links {
			if l.IsVisible {
				fmt.Printf("  🔗 %s  %s\n", l.Title, cyan(l.URL))
			}
		}
		if p.Preferences == nil || p.Preferences.ShowSocialIcons {
			for _, i := range p.Icons {
				if i.IsVisible {
					fmt.Printf("  • %-10s %s\n", i.Platform, cyan(i.URL))
				}
			}
		}
		return nil
	},
}
