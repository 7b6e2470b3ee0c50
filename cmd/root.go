package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sam-app/cli/cmd/auth"
	"github.com/sam-app/cli/cmd/config"
	"github.com/sam-app/cli/internal/app"
	"github.com/sam-app/cli/internal/common"
	appConfig "github.com/sam-app/cli/internal/config"
)

var (
	cfgFile string
	debug   bool
	output  string

	// current is the app built for this invocation, closed by Execute
	current *app.App
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sam",
	Short: "SAM CLI - command-line access to the SAM dashboard",
	Long: `SAM CLI signs you in to the SAM platform and keeps the session
between invocations.

Sessions are stored locally and checked for expiry on every start,
without contacting the server.`,
	Version:       common.GetFullVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if debug {
			appConfig.SetDebug(true)
		}
		if output != "" {
			appConfig.SetOutputFormat(output)
		}

		cfg, err := appConfig.Initialize(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to initialize configuration: %w", err)
		}

		logger := common.NewLogger(appConfig.LogLevel())
		a, err := app.New(cfg, logger)
		if err != nil {
			return err
		}

		current = a

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cmd.SetContext(app.WithApp(ctx, a))
		return nil
	},
}

// Execute adds all child commands to the root command and runs it.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// The app is closed whether or not the command succeeded.
func Execute(ctx context.Context) error {
	defer func() {
		if current != nil {
			current.Close()
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sam-cli.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "", "output format (table, json, yaml, text)")

	rootCmd.AddCommand(auth.AuthCmd)
	rootCmd.AddCommand(config.ConfigCmd)
}
