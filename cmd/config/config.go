package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sam-app/cli/internal/app"
	appConfig "github.com/sam-app/cli/internal/config"
	"github.com/sam-app/cli/internal/format"
)

// ConfigCmd represents the config command
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "CLI configuration commands",
	Long: `CLI configuration commands for SAM CLI.

This command group shows the effective configuration and updates
individual keys in the config file.`,
}

// configShowCmd prints the effective configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

// configSetCmd updates one key
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	a, err := app.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	cfg := a.Config
	storagePath, err := cfg.StoragePath()
	if err != nil {
		return err
	}
	return format.Print(map[string]string{
		"server.url":           cfg.Server.URL,
		"server.timeout":       cfg.ServerTimeout().String(),
		"server.rate_limit":    fmt.Sprintf("%g", cfg.Server.RateLimit),
		"storage.path":         storagePath,
		"format.default":       cfg.Format.Default,
		"format.colors":        fmt.Sprintf("%t", cfg.Format.Colors),
		"log.level":            cfg.Log.Level,
		"oauth.redirect_delay": cfg.RedirectDelay().String(),
	})
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if err := appConfig.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	format.PrintSuccess("✓ %s updated", args[0])
	return nil
}

func init() {
	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configSetCmd)
}
