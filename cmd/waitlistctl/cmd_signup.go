package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spryntr/waitlist/internal/antispam"
	"github.com/spryntr/waitlist/pkg/client"
)

func newSignupCmd(opts *globalOptions) *cobra.Command {
	var inviteURL string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Join the waitlist interactively",
		Long: `Opens the signup form in the terminal and prompts for each field.

On success the welcome email is requested and the community invite is shown.
If the server rejects the submission the form is kept and you are asked to
retry.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			funnel := client.NewFunnel(c, client.NewTextPresenter(cmd.OutOrStdout()),
				client.WithInviteURL(inviteURL),
				client.WithGuard(antispam.NewGuard(antispam.Config{Enabled: true})),
			)
			return runSignup(cmd.Context(), funnel, cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&inviteURL, "invite-url", "", "Community invite link shown after signing up")
	return cmd
}

func runSignup(ctx context.Context, funnel *client.Funnel, in io.Reader, out io.Writer, opts *globalOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	reader := bufio.NewReader(in)

	funnel.Open()
	fmt.Fprintln(out, "Secure your spot and see how data becomes effortless with Spryntr.")

	for {
		for _, field := range client.VisibleFields {
			current := funnel.Form().Value(field)
			value, err := promptField(reader, out, field, current)
			if err != nil {
				funnel.Close()
				return err
			}
			if err := funnel.Form().Set(field, value); err != nil {
				return err
			}
		}

		fmt.Fprintln(out, "Submitting…")
		submitCtx, cancel := context.WithTimeout(ctx, opts.timeout)
		err := funnel.Submit(submitCtx)
		cancel()
		if err == nil {
			return nil
		}

		retry, perr := confirm(reader, out, "Try again?")
		if perr != nil || !retry {
			funnel.Close()
			return err
		}
	}
}

func promptField(reader *bufio.Reader, out io.Writer, field client.Field, current string) (string, error) {
	choices := field.Choices()
	for {
		if len(choices) > 0 {
			fmt.Fprintf(out, "%s:\n", field.Label())
			for i, choice := range choices {
				fmt.Fprintf(out, "  %d) %s\n", i+1, choice)
			}
		}
		if current != "" {
			fmt.Fprintf(out, "%s [%s]: ", field.Label(), current)
		} else {
			fmt.Fprintf(out, "%s: ", field.Label())
		}

		line, err := readLine(reader)
		if err != nil {
			return "", err
		}
		if line == "" {
			line = current
		}
		if line == "" {
			fmt.Fprintf(out, "%s is required.\n", field.Label())
			continue
		}
		if len(choices) == 0 {
			return line, nil
		}
		if choice, ok := matchChoice(choices, line); ok {
			return choice, nil
		}
		fmt.Fprintf(out, "Pick one of the listed options.\n")
	}
}

func matchChoice(choices []string, input string) (string, bool) {
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(choices) {
		return choices[n-1], true
	}
	for _, choice := range choices {
		if strings.EqualFold(choice, input) {
			return choice, true
		}
	}
	return "", false
}

func confirm(reader *bufio.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := readLine(reader)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

var errInputClosed = errors.New("input closed before the form was complete")

func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", errInputClosed
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
