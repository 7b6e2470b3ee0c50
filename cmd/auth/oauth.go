package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sam-app/cli/internal/app"
	"github.com/sam-app/cli/internal/format"
	"github.com/sam-app/cli/internal/oauth"
)

// oauthCmd represents the oauth command
var oauthCmd = &cobra.Command{
	Use:   "oauth",
	Short: "OAuth sign-in commands",
}

// oauthProvidersCmd lists enabled providers
var oauthProvidersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List OAuth providers",
	RunE:  runOAuthProviders,
}

// oauthCallbackCmd completes a provider sign-in
var oauthCallbackCmd = &cobra.Command{
	Use:   "callback <redirect-url>",
	Short: "Complete an OAuth sign-in",
	Long: `Complete an OAuth sign-in by pasting the URL the provider redirected
your browser to. The authorization code in it can be used only once.`,
	Args: cobra.ExactArgs(1),
	RunE: runOAuthCallback,
}

func runOAuthProviders(cmd *cobra.Command, args []string) error {
	a, err := app.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	resp, err := a.Client.OAuthProviders(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list providers: %w", err)
	}
	if !resp.Enabled {
		format.PrintWarning("OAuth sign-in is disabled on this server")
		return nil
	}
	return format.Print(*resp)
}

func runOAuthCallback(cmd *cobra.Command, args []string) error {
	a, err := app.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	params, err := oauth.ParseRedirect(args[0])
	if err != nil {
		return err
	}

	done := make(chan struct{})
	handshake := oauth.NewHandshake(a.Client, a.Controller)
	handshake.RedirectDelay = a.Config.RedirectDelay()
	handshake.Navigate = func() { close(done) }
	defer handshake.Stop()

	if err := handshake.Process(cmd.Context(), params); err != nil {
		return fmt.Errorf("oauth sign-in failed: %w", err)
	}

	snap := a.Controller.Snapshot()
	if snap.User != nil {
		format.PrintSuccess("✓ Signed in as %s via %s", snap.User.Email, params.Get("provider"))
	}

	select {
	case <-done:
	case <-cmd.Context().Done():
	}
	return nil
}

func init() {
	oauthCmd.AddCommand(oauthProvidersCmd)
	oauthCmd.AddCommand(oauthCallbackCmd)
	AuthCmd.AddCommand(oauthCmd)
}
