// Command waitlistctl drives the waitlist intake API from a terminal.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spryntr/waitlist/pkg/client"
	"github.com/spryntr/waitlist/pkg/logger"
)

const defaultBaseURL = "http://localhost:8080/api"

type globalOptions struct {
	baseURL string
	timeout time.Duration
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "waitlistctl",
		Short: "Join and inspect the Spryntr waitlist",
		Long: `waitlistctl talks to a running waitlist server.

Available commands:
  signup - fill in the signup form interactively
  notify - resend the welcome email for an address
  status - check that the waitlist is accepting signups`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			return logger.Init(level)
		},
	}

	baseURL := os.Getenv("WAITLIST_API_URL")
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	root.PersistentFlags().StringVar(&opts.baseURL, "base-url", baseURL, "Waitlist API base URL (or set WAITLIST_API_URL)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Request timeout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newSignupCmd(opts))
	root.AddCommand(newNotifyCmd(opts))
	root.AddCommand(newStatusCmd(opts))
	return root
}

func (o *globalOptions) client() (*client.Client, error) {
	return client.New(o.baseURL)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
