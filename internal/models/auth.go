package models

// User represents the authenticated user record
type User struct {
	ID        string `json:"id" yaml:"id"`
	Email     string `json:"email" yaml:"email"`
	FirstName string `json:"firstName,omitempty" yaml:"first_name,omitempty"`
	LastName  string `json:"lastName,omitempty" yaml:"last_name,omitempty"`
	Role      string `json:"role,omitempty" yaml:"role,omitempty"`
}

// DisplayName returns the user's full name, falling back to the email
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	OrganizationName string `json:"organizationName,omitempty"`
}

// AuthResponse is the backend's wire shape for login, register and refresh
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
	User         *User  `json:"user"`
	MFARequired  bool   `json:"mfaRequired"`
}

// SessionPayload is the uniform result of every session-producing call
type SessionPayload struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user"`
	MFARequired  bool   `json:"mfaRequired"`
}

// ToPayload adapts the wire response into a SessionPayload
func (r *AuthResponse) ToPayload() *SessionPayload {
	token := r.AccessToken
	if token == "" {
		token = r.Token
	}
	return &SessionPayload{
		Token:        token,
		RefreshToken: r.RefreshToken,
		User:         r.User,
		MFARequired:  r.MFARequired,
	}
}

// StoredAuthState is the durable projection of a session
type StoredAuthState struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user"`
}

// MFASetupRequest is the body of a setup verification call
type MFASetupRequest struct {
	Code string `json:"code"`
}

// MFASetupResponse is returned by both MFA setup endpoints
type MFASetupResponse struct {
	Secret          string   `json:"secret"`
	QRCodeURL       string   `json:"qrCodeUrl"`
	ProvisioningURI string   `json:"provisioningUri"`
	BackupCodes     []string `json:"backupCodes"`
	SetupComplete   bool     `json:"setupComplete"`
}

// OAuthCallbackRequest is sent to exchange a provider redirect for a session.
// Email and ProviderUserID are always sent; the remaining optional fields are
// omitted when the redirect did not carry them.
type OAuthCallbackRequest struct {
	Provider       string  `json:"provider"`
	Code           string  `json:"code"`
	Email          string  `json:"email"`
	ProviderUserID string  `json:"providerUserId"`
	FirstName      *string `json:"firstName,omitempty"`
	LastName       *string `json:"lastName,omitempty"`
	AccessToken    *string `json:"accessToken,omitempty"`
	RefreshToken   *string `json:"refreshToken,omitempty"`
}

// OAuthCallbackResponse is the session returned by the exchange
type OAuthCallbackResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user"`
}

// OAuthProvidersResponse lists the providers enabled on the backend
type OAuthProvidersResponse struct {
	Providers []string `json:"providers" yaml:"providers"`
	Enabled   bool     `json:"enabled" yaml:"enabled"`
}

// Table returns one row per provider
func (r OAuthProvidersResponse) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(r.Providers))
	for _, p := range r.Providers {
		rows = append(rows, []string{p})
	}
	return []string{"Provider"}, rows
}
