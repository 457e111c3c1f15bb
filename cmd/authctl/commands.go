package main

import (
	"github.com/spf13/cobra"

	"github.com/artem13815/authflow/pkg/client"
)

func newRegisterCmd(opts *globalOptions) *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			resp, err := c.Register(cmd.Context(), username, email, password)
			if err != nil {
				return err
			}
			cmd.Println(resp.Message)
			cmd.Println("Run `authctl login` to start a session.")
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username (at least 3 characters)")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (at least 6 characters)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLoginCmd(opts *globalOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			if _, err := c.Login(cmd.Context(), email, password); err != nil {
				return err
			}
			printWelcome(cmd, c.CurrentUser())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newVerifyCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the stored token with the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			resp, err := c.VerifyToken(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Println(resp.Message)
			printUser(cmd, resp.User)
			return nil
		},
	}
}

func newProfileCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Fetch the profile of the logged-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			resp, err := c.Profile(cmd.Context())
			if err != nil {
				return err
			}
			printUser(cmd, resp.User)
			return nil
		},
	}
}

func newLogoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			if err := c.Logout(); err != nil {
				return err
			}
			cmd.Println("Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the locally stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			user := c.CurrentUser()
			if !c.IsAuthenticated() || user == nil {
				return errNotLoggedIn
			}
			printWelcome(cmd, user)
			return nil
		},
	}
}

func printWelcome(cmd *cobra.Command, user *client.User) {
	cmd.Println("Login Successful!")
	if user != nil {
		cmd.Printf("Welcome %s!\n", user.Username)
	}
}

func printUser(cmd *cobra.Command, user *client.User) {
	if user == nil {
		return
	}
	cmd.Printf("id:        %s\n", user.ID)
	cmd.Printf("username:  %s\n", user.Username)
	cmd.Printf("email:     %s\n", user.Email)
	if !user.CreatedAt.IsZero() {
		cmd.Printf("created:   %s\n", user.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}
