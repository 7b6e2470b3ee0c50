// Package mfa drives TOTP enrollment: intro, scan, verify, backup, complete.
package mfa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sam-app/cli/internal/models"
	"github.com/sam-app/cli/internal/utils"
)

// Step is a position in the enrollment wizard
type Step int

const (
	StepIntro Step = iota
	StepScan
	StepVerify
	StepBackup
	StepComplete
)

// String returns the step name
func (s Step) String() string {
	switch s {
	case StepIntro:
		return "intro"
	case StepScan:
		return "scan"
	case StepVerify:
		return "verify"
	case StepBackup:
		return "backup"
	case StepComplete:
		return "complete"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

type event int

const (
	eventSetupStarted event = iota
	eventContinue
	eventBack
	eventVerifiedWithCodes
	eventVerifiedNoCodes
)

var (
	ErrInvalidTransition     = errors.New("mfa: action not allowed at this step")
	ErrNoToken               = errors.New("mfa: not signed in")
	ErrBusy                  = errors.New("mfa: a request is already in progress")
	ErrCodeIncomplete        = errors.New("mfa: verification code must be 6 digits")
	ErrBackupNotAcknowledged = errors.New("mfa: copy or download the backup codes first")
)

const (
	setupFallback  = "Failed to start MFA setup"
	verifyFallback = "Verification failed"
)

// transition is the only place steps change. Anything not listed is refused.
func transition(from Step, ev event) (Step, bool) {
	switch from {
	case StepIntro:
		if ev == eventSetupStarted {
			return StepScan, true
		}
	case StepScan:
		if ev == eventContinue {
			return StepVerify, true
		}
	case StepVerify:
		switch ev {
		case eventBack:
			return StepScan, true
		case eventVerifiedWithCodes:
			return StepBackup, true
		case eventVerifiedNoCodes:
			return StepComplete, true
		}
	case StepBackup:
		if ev == eventContinue {
			return StepComplete, true
		}
	case StepComplete:
	}
	return from, false
}

// API is the subset of the gateway the wizard calls
type API interface {
	MFASetup(ctx context.Context, token string) (*models.MFASetupResponse, error)
	MFAVerifySetup(ctx context.Context, token, code string) (*models.MFASetupResponse, error)
}

// TokenSource yields the current access token, or "" when signed out
type TokenSource interface {
	Token() string
}

// State is a copy of the wizard's data at one instant
type State struct {
	Step             Step
	Secret           string
	QRCodeURL        string
	ProvisioningURI  string
	VerificationCode string
	BackupCodes      []string
	SecretCopied     bool
	BackupCodesSaved bool
	Loading          bool
	Error            *utils.AuthError
}

// Wizard is one enrollment attempt. It is not persisted.
type Wizard struct {
	api    API
	tokens TokenSource

	mu               sync.Mutex
	step             Step
	secret           string
	qrCodeURL        string
	provisioningURI  string
	code             string
	backupCodes      []string
	secretCopied     bool
	backupCodesSaved bool
	loading          bool
	err              *utils.AuthError
}

// NewWizard creates a wizard at the intro step
func NewWizard(api API, tokens TokenSource) *Wizard {
	return &Wizard{api: api, tokens: tokens, step: StepIntro}
}

// State returns a snapshot of the wizard
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := State{
		Step:             w.step,
		Secret:           w.secret,
		QRCodeURL:        w.qrCodeURL,
		ProvisioningURI:  w.provisioningURI,
		VerificationCode: w.code,
		BackupCodes:      append([]string(nil), w.backupCodes...),
		SecretCopied:     w.secretCopied,
		BackupCodesSaved: w.backupCodesSaved,
		Loading:          w.loading,
	}
	if w.err != nil {
		e := *w.err
		st.Error = &e
	}
	return st
}

// Step returns the current step
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// BeginSetup requests a TOTP secret and moves from intro to scan. On
// failure the wizard stays at intro with the error recorded.
func (w *Wizard) BeginSetup(ctx context.Context) error {
	w.mu.Lock()
	if _, ok := transition(w.step, eventSetupStarted); !ok {
		w.mu.Unlock()
		return ErrInvalidTransition
	}
	if w.loading {
		w.mu.Unlock()
		return ErrBusy
	}
	token := w.tokens.Token()
	if token == "" {
		w.mu.Unlock()
		return ErrNoToken
	}
	w.loading = true
	w.err = nil
	w.mu.Unlock()

	resp, err := w.api.MFASetup(ctx, token)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.loading = false

	if err != nil {
		w.err = utils.Normalize(err, setupFallback)
		return w.err
	}

	w.secret = resp.Secret
	w.qrCodeURL = resp.QRCodeURL
	w.provisioningURI = resp.ProvisioningURI
	w.step, _ = transition(w.step, eventSetupStarted)
	return nil
}

// Continue advances scan to verify, or backup to complete once the backup
// codes have been copied or downloaded
func (w *Wizard) Continue() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.loading {
		return ErrBusy
	}
	if w.step == StepBackup && !w.backupCodesSaved {
		return ErrBackupNotAcknowledged
	}
	next, ok := transition(w.step, eventContinue)
	if !ok {
		return ErrInvalidTransition
	}
	w.step = next
	return nil
}

// Back returns from verify to scan; the secret and QR code are kept
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.loading {
		return ErrBusy
	}
	next, ok := transition(w.step, eventBack)
	if !ok {
		return ErrInvalidTransition
	}
	w.step = next
	return nil
}

// CanContinue reports whether Continue would advance
func (w *Wizard) CanContinue() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.loading {
		return false
	}
	switch w.step {
	case StepScan:
		return true
	case StepBackup:
		return w.backupCodesSaved
	default:
		return false
	}
}

// CanSubmit reports whether a full code has been entered at the verify step
func (w *Wizard) CanSubmit() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step == StepVerify && !w.loading && len(w.code) == utils.OTPLength
}

// CopySecret marks the secret as copied and returns it
func (w *Wizard) CopySecret() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.secret == "" || (w.step != StepScan && w.step != StepVerify) {
		return "", ErrInvalidTransition
	}
	w.secretCopied = true
	return w.secret, nil
}

// EnterDigit appends one digit to the code. The sixth digit submits the
// code immediately.
func (w *Wizard) EnterDigit(ctx context.Context, d rune) error {
	w.mu.Lock()
	if w.step != StepVerify {
		w.mu.Unlock()
		return ErrInvalidTransition
	}
	if d < '0' || d > '9' {
		w.mu.Unlock()
		return utils.NewValidationError("code", "only digits are allowed")
	}
	if len(w.code) >= utils.OTPLength {
		w.mu.Unlock()
		return nil
	}
	w.code += string(d)
	complete := len(w.code) == utils.OTPLength
	w.mu.Unlock()

	if complete {
		return w.Verify(ctx)
	}
	return nil
}

// SetCode replaces the entered code with the digits of code, keeping at
// most six. A complete code is submitted immediately.
func (w *Wizard) SetCode(ctx context.Context, code string) error {
	var b strings.Builder
	for _, r := range code {
		if r >= '0' && r <= '9' && b.Len() < utils.OTPLength {
			b.WriteRune(r)
		}
	}

	w.mu.Lock()
	if w.step != StepVerify {
		w.mu.Unlock()
		return ErrInvalidTransition
	}
	w.code = b.String()
	complete := len(w.code) == utils.OTPLength
	w.mu.Unlock()

	if complete {
		return w.Verify(ctx)
	}
	return nil
}

// Verify submits the entered code. Success moves to backup when codes were
// issued and straight to complete otherwise. Failure clears the code.
func (w *Wizard) Verify(ctx context.Context) error {
	w.mu.Lock()
	if w.step != StepVerify {
		w.mu.Unlock()
		return ErrInvalidTransition
	}
	if w.loading {
		w.mu.Unlock()
		return ErrBusy
	}
	if err := utils.ValidateOTPCode(w.code); err != nil {
		w.mu.Unlock()
		return ErrCodeIncomplete
	}
	token := w.tokens.Token()
	if token == "" {
		w.mu.Unlock()
		return ErrNoToken
	}
	code := w.code
	w.loading = true
	w.err = nil
	w.mu.Unlock()

	resp, err := w.api.MFAVerifySetup(ctx, token, code)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.loading = false

	if err != nil {
		w.code = ""
		w.err = utils.Normalize(err, verifyFallback)
		return w.err
	}

	ev := eventVerifiedNoCodes
	if len(resp.BackupCodes) > 0 {
		w.backupCodes = append([]string(nil), resp.BackupCodes...)
		ev = eventVerifiedWithCodes
	}
	w.step, _ = transition(w.step, ev)
	return nil
}

// CopyBackupCodes acknowledges the backup codes and returns them one per line
func (w *Wizard) CopyBackupCodes() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepBackup {
		return "", ErrInvalidTransition
	}
	w.backupCodesSaved = true
	return strings.Join(w.backupCodes, "\n"), nil
}

// DownloadBackupCodes writes the backup codes to out. The codes count as
// acknowledged only if the write succeeds.
func (w *Wizard) DownloadBackupCodes(out io.Writer) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepBackup {
		return ErrInvalidTransition
	}

	var b strings.Builder
	b.WriteString("SAM backup codes\n")
	b.WriteString("Each code can be used once if your authenticator is unavailable.\n\n")
	for _, code := range w.backupCodes {
		b.WriteString(code)
		b.WriteString("\n")
	}
	if _, err := io.WriteString(out, b.String()); err != nil {
		return fmt.Errorf("failed to write backup codes: %w", err)
	}

	w.backupCodesSaved = true
	return nil
}

// Finish leaves a completed wizard
func (w *Wizard) Finish() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepComplete {
		return ErrInvalidTransition
	}
	return nil
}
