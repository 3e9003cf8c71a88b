package main

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/zfogg/biolink/pkg/client"
)

var (
	apiURL  = "http://localhost:8787"
	session string
	output  = "text" // "text" or "json"
	verbose bool

	logger   = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})
	notified bool
	api      *client.Client
)

var rootCmd = &cobra.Command{
	Use:           "biolink",
	Short:         "biolink CLI - manage your profile links, icons and analytics",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetLevel(log.DebugLevel)
		}
		if session == "" {
			session = os.Getenv("BIOLINK_SESSION")
		}
		api = client.New(client.Options{
			BaseURL:   apiURL,
			Session:   session,
			Timeout:   30 * time.Second,
			UserAgent: "biolink-cli/1.0",
			Logger:    logger,
		})
	},
}

// notifier prints store failures; main skips errors that were already shown
var notifier = client.NotifierFunc(func(msg string) {
	notified = true
	logger.Error(msg)
})

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", apiURL, "API server URL")
	rootCmd.PersistentFlags().StringVar(&session, "session", "", "Session cookie value (defaults to BIOLINK_SESSION env var)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", output, "Output format: text or json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log HTTP requests")

	rootCmd.AddCommand(analyticsCmd, linksCmd, iconsCmd, profileCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !notified {
			color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
