package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iliyamo/event-platform/internal/client"
)

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".eventctl-token"
	}
	return filepath.Join(dir, "eventctl", "token")
}

// newClient returns a client carrying the --token value or, failing that,
// the token saved by login.
func (o *options) newClient() (*client.Client, error) {
	c := client.New(o.server)
	tok := o.token
	if tok == "" {
		b, err := os.ReadFile(o.tokenFile)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, errors.New("not logged in: run eventctl login or pass --token")
			}
			return nil, fmt.Errorf("read token: %w", err)
		}
		tok = strings.TrimSpace(string(b))
	}
	c.SetToken(tok)
	return c, nil
}

func (o *options) saveToken(tok string) error {
	if err := os.MkdirAll(filepath.Dir(o.tokenFile), 0o700); err != nil {
		return err
	}
	return os.WriteFile(o.tokenFile, []byte(tok+"\n"), 0o600)
}

func newLoginCmd(opts *options) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" || password == "" {
				return errors.New("--email and --password (or EVENTCTL_PASSWORD) are required")
			}
			c := client.New(opts.server)
			s, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := opts.saveToken(s.Access.Token); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s), token expires %s\n",
				s.User.Email, s.User.Role, s.Access.Expires.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", os.Getenv("EVENTCTL_PASSWORD"), "account password")
	return cmd
}
