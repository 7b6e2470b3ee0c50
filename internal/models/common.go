package models

// ErrorDetail is the error body returned by the auth gateway
type ErrorDetail struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Code    string `json:"code,omitempty"`
}

// StatusView is the printable summary of the current session
type StatusView struct {
	Status    string `json:"status" yaml:"status"`
	Email     string `json:"email,omitempty" yaml:"email,omitempty"`
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	Role      string `json:"role,omitempty" yaml:"role,omitempty"`
	Server    string `json:"server" yaml:"server"`
	ExpiresAt string `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

// Table returns the status as property/value rows
func (v StatusView) Table() ([]string, [][]string) {
	rows := [][]string{{"Status", v.Status}}
	if v.Email != "" {
		rows = append(rows, []string{"Email", v.Email})
	}
	if v.Name != "" {
		rows = append(rows, []string{"Name", v.Name})
	}
	if v.Role != "" {
		rows = append(rows, []string{"Role", v.Role})
	}
	rows = append(rows, []string{"Server", v.Server})
	if v.ExpiresAt != "" {
		rows = append(rows, []string{"Expires At", v.ExpiresAt})
	}
	return []string{"Property", "Value"}, rows
}
