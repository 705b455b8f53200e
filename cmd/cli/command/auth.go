package command

import (
	"fmt"
	"strings"

	"servicehub/cmd/cli/authentication"
	"servicehub/internal/storefront/session"

	"github.com/spf13/cobra"
)

// auth.go handles the session commands: login with a token issued by the data API,
// logout and whoami.

// authCmd represents the auth command for authentication related subcommands
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  `Store, inspect and clear the storefront session used by the other commands.`,
}

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with a session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("token")
		raw = strings.TrimPrefix(strings.TrimSpace(raw), "Bearer ")

		sess, err := session.FromToken(raw, app.cfg.SessionSecret)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		if !sess.Authenticated() {
			return fmt.Errorf("login failed: %w", session.ErrExpiredToken)
		}

		creds := &authentication.StoredCredentials{
			Token:  sess.Token,
			UserID: sess.User.ID,
			Name:   sess.User.Name,
			Role:   string(sess.User.Role),
		}
		if !sess.ExpiresAt.IsZero() {
			creds.ExpiresAt = sess.ExpiresAt.Unix()
		}
		if err := authentication.StoreTokens(creds); err != nil {
			return fmt.Errorf("failed to store session: %w", err)
		}

		printSuccess(cmd, "Logged in as %s (%s)", displayName(sess), sess.User.Role)
		return nil
	},
}

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := authentication.DeleteTokens(); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
		printSuccess(cmd, "Successfully logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := app.requireSession()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "User: %s (ID: %d)\n", displayName(sess), sess.User.ID)
		if sess.User.Email != "" {
			fmt.Fprintf(out, "Email: %s\n", sess.User.Email)
		}
		fmt.Fprintf(out, "Role: %s\n", sess.User.Role)
		if !sess.ExpiresAt.IsZero() {
			fmt.Fprintf(out, "Expires: %s\n", sess.ExpiresAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func displayName(sess *session.Session) string {
	if sess.User.Name != "" {
		return sess.User.Name
	}
	return fmt.Sprintf("user %d", sess.User.ID)
}

// init function to add auth commands to root command
func init() {
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(whoamiCmd)

	loginCmd.Flags().StringP("token", "t", "", "session token issued by the data API")
	loginCmd.MarkFlagRequired("token")
}
