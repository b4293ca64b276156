package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newNotifyCmd(opts *globalOptions) *cobra.Command {
	var email, firstName string

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send the welcome email for an address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			res, err := c.Notify(ctx, email, firstName)
			if err != nil {
				return err
			}
			if !res.OK {
				return fmt.Errorf("welcome email not sent (%s): %s", res.Stage, res.Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "welcome email sent: %s\n", res.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Recipient address")
	cmd.Flags().StringVar(&firstName, "first-name", "", "First name used in the greeting")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newStatusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check that the waitlist is accepting signups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			msg, err := c.Status(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}
