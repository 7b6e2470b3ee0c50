package auth

import (
	"bufio"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sam-app/cli/internal/app"
	"github.com/sam-app/cli/internal/format"
	"github.com/sam-app/cli/internal/models"
	"github.com/sam-app/cli/internal/utils"
)

// AuthCmd represents the auth command
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long: `Authentication commands for SAM CLI.

This command group includes login, registration, logout, session refresh,
MFA enrollment and OAuth sign-in.`,
}

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login to SAM",
	Long:  "Authenticate with SAM using email and password",
	RunE:  runLogin,
}

// registerCmd represents the register command
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a SAM account",
	Long:  "Create a SAM account and sign in with it",
	RunE:  runRegister,
}

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Logout from SAM",
	Long:  "Forget the locally stored session. No request is sent to the server.",
	RunE:  runLogout,
}

// refreshCmd represents the refresh command
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the session",
	Long:  "Exchange the stored refresh token for a new access token",
	RunE:  runRefresh,
}

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	Long:  "Display current authentication status and user information",
	RunE:  runStatus,
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := app.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password, err = prompt(cmd, "Password: ")
		if err != nil {
			return err
		}
	}

	format.PrintInfo("Logging in as %s...", email)
	if err := a.Controller.Login(cmd.Context(), email, password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	format.PrintSuccess("✓ Successfully logged in as %s", email)
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	a, err := app.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	req := models.RegisterRequest{}
	req.Email, _ = cmd.Flags().GetString("email")
	req.Password, _ = cmd.Flags().GetString("password")
	req.FirstName, _ = cmd.Flags().GetString("first-name")
	req.LastName, _ = cmd.Flags().GetString("last-name")
	req.OrganizationName, _ = cmd.Flags().GetString("organization")
	if req.Password == "" {
		req.Password, err = prompt(cmd, "Password: ")
		if err != nil {
			return err
		}
	}

	if err := a.Controller.Register(cmd.Context(), req); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	format.PrintSuccess("✓ Account created, logged in as %s", req.Email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := app.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	snap := a.Controller.Snapshot()
	if !snap.IsAuthenticated() {
		return fmt.Errorf("not logged in")
	}

	a.Controller.Logout()
	format.PrintSuccess("✓ Logged out %s", snap.User.Email)
	return nil
}

func runRefresh(cmd *cobra.Command, args []string) error {
	a, err := app.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	if err := a.Controller.Refresh(cmd.Context()); err != nil {
		if utils.IsUnauthorized(err) {
			format.PrintWarning("Session expired, please log in again")
		}
		return fmt.Errorf("refresh failed: %w", err)
	}

	format.PrintSuccess("✓ Session refreshed")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := app.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	snap := a.Controller.Snapshot()
	view := models.StatusView{
		Status: "Not logged in",
		Server: a.Config.Server.URL,
	}
	if snap.IsAuthenticated() {
		view.Status = "Logged in"
		view.Email = snap.User.Email
		view.Name = snap.User.DisplayName()
		view.Role = snap.User.Role
		if exp, ok := a.Controller.Validator().ExpiresAt(snap.AccessToken); ok {
			view.ExpiresAt = exp.Local().Format(time.RFC3339)
		}
	}

	return format.Print(view)
}

// prompt reads one line from the command's input
func prompt(cmd *cobra.Command, label string) (string, error) {
	return readLine(bufio.NewReader(cmd.InOrStdin()), cmd.OutOrStdout(), label)
}

func init() {
	loginCmd.Flags().StringP("email", "e", "", "Email address")
	loginCmd.Flags().StringP("password", "p", "", "Password (prompted when omitted)")
	loginCmd.MarkFlagRequired("email")

	registerCmd.Flags().StringP("email", "e", "", "Email address")
	registerCmd.Flags().StringP("password", "p", "", "Password (prompted when omitted)")
	registerCmd.Flags().String("first-name", "", "First name")
	registerCmd.Flags().String("last-name", "", "Last name")
	registerCmd.Flags().String("organization", "", "Organization name")
	registerCmd.MarkFlagRequired("email")
	registerCmd.MarkFlagRequired("first-name")
	registerCmd.MarkFlagRequired("last-name")

	AuthCmd.AddCommand(loginCmd)
	AuthCmd.AddCommand(registerCmd)
	AuthCmd.AddCommand(logoutCmd)
	AuthCmd.AddCommand(refreshCmd)
	AuthCmd.AddCommand(statusCmd)
}
