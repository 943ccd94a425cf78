package apikeysdk

import "time"

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// KeyInfo describes a stored key. The secret is never part of it.
type KeyInfo struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"owner_id"`
	Name       string     `json:"name"`
	KeyPrefix  string     `json:"key_prefix"`
	Preview    string     `json:"preview"`
	Scopes     []string   `json:"scopes"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	LastUsedIP string     `json:"last_used_ip,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// GenerateKeyRequest is the body of POST /v1/keys.
type GenerateKeyRequest struct {
	Name string `json:"name"`

	// Scopes in "resource:action" form.
	Scopes []string `json:"scopes"`

	// ExpiryDays of zero uses the server default.
	ExpiryDays int `json:"expiry_days,omitempty"`

	// OwnerID issues the key for another owner. Admin only.
	OwnerID string `json:"owner_id,omitempty"`
}

// GeneratedKeyResponse is returned by generate and rotate. Secret is the
// full key and is only ever returned here.
type GeneratedKeyResponse struct {
	Key     KeyInfo `json:"key"`
	Secret  string  `json:"secret"`
	Preview string  `json:"preview"`
}

// ListKeysResponse is the body of GET /v1/keys.
type ListKeysResponse struct {
	Keys []KeyInfo `json:"keys"`
}

// UpdateKeyRequest is the body of PATCH /v1/keys/{id}. Omitted fields are
// left unchanged.
type UpdateKeyRequest struct {
	Name        *string    `json:"name,omitempty"`
	Scopes      *[]string  `json:"scopes,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ClearExpiry bool       `json:"clear_expiry,omitempty"`
}

// ValidateKeyRequest is the body of POST /v1/keys/validate.
type ValidateKeyRequest struct {
	Key string `json:"key"`
}

// ValidateKeyResponse reports the outcome of a validation. Reason is a
// machine code such as "key_expired" when Valid is false.
type ValidateKeyResponse struct {
	Valid  bool     `json:"valid"`
	Reason string   `json:"reason,omitempty"`
	Key    *KeyInfo `json:"key,omitempty"`
}

// WhoAmIResponse describes the key a request authenticated with.
type WhoAmIResponse struct {
	KeyID     string   `json:"key_id"`
	OwnerID   string   `json:"owner_id"`
	Name      string   `json:"name"`
	KeyPrefix string   `json:"key_prefix"`
	Scopes    []string `json:"scopes"`
}

// SweepResponse is returned by a manual housekeeping sweep.
type SweepResponse struct {
	Invalidated int `json:"invalidated"`
}

// HealthChecks lists dependency status for readiness.
type HealthChecks struct {
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// HealthResponse is the body of /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}
