package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zfogg/biolink/pkg/client"
)

var iconsCmd = &cobra.Command{
	Use:   "icons",
	Short: "Manage your social icons",
}

var iconsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your social icons",
	RunE: func(cmd *cobra.Command, args []string) error {
		icons, err := client.NewIconsStore(api, notifier).Fetch(cmd.Context())
		if err != nil {
			return err
		}
		if emit(icons) {
			return nil
		}
		for _, i := range icons {
			fmt.Printf("%2d. %-10s %s  %s%s\n", i.Order, bold(i.Platform), cyan(i.URL),
				dim(fmt.Sprintf("%d clicks · %s", i.ClickCount, i.ID)), visibility(i.IsVisible))
		}
		return nil
	},
}

var iconsAddCmd = &cobra.Command{
	Use:   "add <platform> <url>",
	Short: "Add a social icon (one per platform)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		icon, err := client.NewIconsStore(api, notifier).Create(cmd.Context(), client.IconInput{Platform: args[0], URL: args[1]})
		if err != nil {
			return err
		}
		if !emit(icon) {
			success("Added %s icon (%s)", bold(icon.Platform), icon.ID)
		}
		return nil
	},
}

var iconsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a social icon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.NewIconsStore(api, notifier).Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		success("Social icon deleted")
		return nil
	},
}

func init() {
	iconsCmd.AddCommand(iconsListCmd, iconsAddCmd, iconsRmCmd)
}
