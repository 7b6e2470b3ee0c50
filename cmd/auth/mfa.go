package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sam-app/cli/internal/app"
	"github.com/sam-app/cli/internal/format"
	"github.com/sam-app/cli/internal/mfa"
)

// mfaCmd represents the mfa command
var mfaCmd = &cobra.Command{
	Use:   "mfa",
	Short: "Multi-factor authentication commands",
}

// mfaSetupCmd walks through TOTP enrollment
var mfaSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Enable an authenticator app",
	Long: `Enroll an authenticator app for your account.

The wizard shows a secret to add to your authenticator, asks for the first
six-digit code, and then shows your backup codes. You must copy or save
the backup codes before the wizard can finish.`,
	RunE: runMFASetup,
}

func runMFASetup(cmd *cobra.Command, args []string) error {
	a, err := app.FromContext(cmd.Context())
	if err != nil {
		return err
	}
	if !a.Controller.IsAuthenticated() {
		return fmt.Errorf("not logged in")
	}

	backupFile, _ := cmd.Flags().GetString("backup-file")
	wizard := mfa.NewWizard(a.Client, a.Controller)
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	return driveWizard(cmd.Context(), wizard, in, out, backupFile)
}

// driveWizard runs the wizard to completion against line-based input
func driveWizard(ctx context.Context, w *mfa.Wizard, in *bufio.Reader, out io.Writer, backupFile string) error {
	for {
		switch w.Step() {
		case mfa.StepIntro:
			fmt.Fprintln(out, "Setting up two-factor authentication...")
			if err := w.BeginSetup(ctx); err != nil {
				return fmt.Errorf("mfa setup failed: %w", err)
			}

		case mfa.StepScan:
			st := w.State()
			fmt.Fprintln(out, "Add this account to your authenticator app.")
			if st.ProvisioningURI != "" {
				fmt.Fprintf(out, "  URI:    %s\n", st.ProvisioningURI)
			}
			fmt.Fprintf(out, "  Secret: %s\n", st.Secret)
			line, err := readLine(in, out, "Press Enter when done (or type 'copy' to print the secret alone): ")
			if err != nil {
				return err
			}
			if line == "copy" {
				secret, err := w.CopySecret()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, secret)
			}
			if err := w.Continue(); err != nil {
				return err
			}

		case mfa.StepVerify:
			line, err := readLine(in, out, "Enter the 6-digit code (or 'back'): ")
			if err != nil {
				return err
			}
			if line == "back" {
				if err := w.Back(); err != nil {
					return err
				}
				continue
			}
			if err := w.SetCode(ctx, line); err != nil {
				format.PrintError("%v", err)
				continue
			}
			if w.Step() == mfa.StepVerify {
				format.PrintWarning("The code must be 6 digits")
			}

		case mfa.StepBackup:
			st := w.State()
			fmt.Fprintln(out, "Backup codes (each works once):")
			for _, code := range st.BackupCodes {
				fmt.Fprintf(out, "  %s\n", code)
			}
			if backupFile != "" {
				if err := saveBackupCodes(w, backupFile); err != nil {
					format.PrintError("%v", err)
					backupFile = ""
					continue
				}
				format.PrintSuccess("✓ Backup codes saved to %s", backupFile)
			} else {
				line, err := readLine(in, out, "Type 'copy' once you have stored them, or 'download <path>': ")
				if err != nil {
					return err
				}
				switch {
				case line == "copy":
					if _, err := w.CopyBackupCodes(); err != nil {
						return err
					}
				case strings.HasPrefix(line, "download "):
					path := strings.TrimSpace(strings.TrimPrefix(line, "download "))
					if err := saveBackupCodes(w, path); err != nil {
						format.PrintError("%v", err)
						continue
					}
					format.PrintSuccess("✓ Backup codes saved to %s", path)
				}
			}
			if err := w.Continue(); err != nil {
				if errors.Is(err, mfa.ErrBackupNotAcknowledged) {
					format.PrintWarning("Save your backup codes before continuing")
					continue
				}
				return err
			}

		case mfa.StepComplete:
			if err := w.Finish(); err != nil {
				return err
			}
			format.PrintSuccess("✓ Two-factor authentication is enabled")
			return nil
		}
	}
}

// readLine prompts and reads one trimmed line; EOF with no input is an error
func readLine(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func saveBackupCodes(w *mfa.Wizard, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("could not create %s: %w", path, err)
	}
	if err := w.DownloadBackupCodes(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func init() {
	mfaSetupCmd.Flags().String("backup-file", "", "Write backup codes to this file")

	mfaCmd.AddCommand(mfaSetupCmd)
	AuthCmd.AddCommand(mfaCmd)
}
