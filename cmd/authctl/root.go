package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/artem13815/authflow/pkg/client"
)

var errNotLoggedIn = errors.New("not logged in, run `authctl login` first")

type globalOptions struct {
	apiURL      string
	sessionFile string
}

// client builds an API client over the file-backed session.
func (o *globalOptions) client() (*client.Client, error) {
	path := o.sessionFile
	if path == "" {
		p, err := client.DefaultSessionPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return client.New(o.apiURL, client.NewFileStore(path)), nil
}

// NewRootCmd creates the root command for the authflow CLI.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "authctl",
		Short: "Command-line client for the authflow API",
		Long: `authctl registers accounts, logs in and keeps the issued bearer token
in a local session file, which later commands attach to their requests.`,
		SilenceUsage: true,
	}

	defaultURL := os.Getenv("API_URL")
	if defaultURL == "" {
		defaultURL = client.DefaultBaseURL
	}
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", defaultURL, "auth API base URL (env API_URL)")
	cmd.PersistentFlags().StringVar(&opts.sessionFile, "session-file", "", "session file path (default <config dir>/authflow/session.json)")

	cmd.AddCommand(newRegisterCmd(opts))
	cmd.AddCommand(newLoginCmd(opts))
	cmd.AddCommand(newVerifyCmd(opts))
	cmd.AddCommand(newProfileCmd(opts))
	cmd.AddCommand(newLogoutCmd(opts))
	cmd.AddCommand(newWhoamiCmd(opts))

	return cmd
}
