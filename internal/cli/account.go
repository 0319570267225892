package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andreagonzahe/lunaria-app/internal/auth"
)

type signInFunc func(ctx context.Context, email, password string) (*auth.User, error)

// readPassword takes the password from the flag, then LUNARIA_PASSWORD,
// then the first line of in.
func readPassword(flag string, in io.Reader, out io.Writer) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv("LUNARIA_PASSWORD"); env != "" {
		return env, nil
	}
	fmt.Fprint(out, "Password: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("password is required")
	}
	return pw, nil
}

func newAccountCommand(open opener, use, short string, pick func(c *auth.Client) signInFunc) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			pw, err := readPassword(password, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := open(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			accounts, err := a.requireAccounts()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			user, err := pick(accounts)(ctx, email, pw)
			if errors.Is(err, auth.ErrConfirmationPending) {
				fmt.Fprintf(out, "Check %s for a confirmation link, then run \"lunaria login\".\n", email)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Signed in as %s\n", user.Email)

			report, err := a.coord.SyncAll(ctx, true)
			if err != nil {
				return err
			}
			if err := report.Err(); err != nil {
				fmt.Fprintf(out, "Initial sync incomplete (%s); local data is unaffected.\n", formatKinds(report.Results))
				return nil
			}
			fmt.Fprintln(out, "Synced.")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (default $LUNARIA_PASSWORD or stdin)")
	return cmd
}

func newLoginCommand(open opener) *cobra.Command {
	return newAccountCommand(open, "login", "Sign in and pull account data",
		func(c *auth.Client) signInFunc { return c.SignInWithPassword })
}

func newSignUpCommand(open opener) *cobra.Command {
	return newAccountCommand(open, "signup", "Create an account",
		func(c *auth.Client) signInFunc { return c.SignUp })
}

func newLogoutCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out; data on this device is kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := open(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			accounts, err := a.requireAccounts()
			if err != nil {
				return err
			}
			if err := accounts.SignOut(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}
