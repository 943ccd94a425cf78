package apikeysdk

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNoToken is returned by management calls on a client without a token.
var ErrNoToken = errors.New("apikeysdk: management token required")

// Client talks to the API key service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// Token is the management bearer token.
	Token string

	// KeyHeader is the header WhoAmI sends the API key in.
	KeyHeader string
}

// NewClient returns a client for baseURL. token may be empty when only
// validation calls are made.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		Token:     token,
		KeyHeader: "X-API-Key",
	}
}

// GenerateKey issues a new key. The secret in the response is shown once.
func (c *Client) GenerateKey(ctx context.Context, req GenerateKeyRequest) (*GeneratedKeyResponse, error) {
	resp, err := c.doManagement(ctx, http.MethodPost, "/v1/keys", req)
	if err != nil {
		return nil, err
	}
	var out GeneratedKeyResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListKeys lists the caller's keys, or ownerID's keys for an admin.
func (c *Client) ListKeys(ctx context.Context, ownerID string) ([]KeyInfo, error) {
	path := "/v1/keys"
	if ownerID != "" {
		path += "?owner_id=" + url.QueryEscape(ownerID)
	}
	resp, err := c.doManagement(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var out ListKeysResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Keys, nil
}

func (c *Client) GetKey(ctx context.Context, keyID string) (*KeyInfo, error) {
	resp, err := c.doManagement(ctx, http.MethodGet, "/v1/keys/"+url.PathEscape(keyID), nil)
	if err != nil {
		return nil, err
	}
	var out KeyInfo
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateKey(ctx context.Context, keyID string, req UpdateKeyRequest) (*KeyInfo, error) {
	resp, err := c.doManagement(ctx, http.MethodPatch, "/v1/keys/"+url.PathEscape(keyID), req)
	if err != nil {
		return nil, err
	}
	var out KeyInfo
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RevokeKey deactivates a key. Revoking twice succeeds.
func (c *Client) RevokeKey(ctx context.Context, keyID string) error {
	resp, err := c.doManagement(ctx, http.MethodPost, "/v1/keys/"+url.PathEscape(keyID)+"/revoke", nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// RotateKey replaces a key and returns the new secret.
func (c *Client) RotateKey(ctx context.Context, keyID string) (*GeneratedKeyResponse, error) {
	resp, err := c.doManagement(ctx, http.MethodPost, "/v1/keys/"+url.PathEscape(keyID)+"/rotate", nil)
	if err != nil {
		return nil, err
	}
	var out GeneratedKeyResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateKey asks the service whether key is valid. A rejected key is not an
// error; check Valid and Reason.
func (c *Client) ValidateKey(ctx context.Context, key string) (*ValidateKeyResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/keys/validate", ValidateKeyRequest{Key: key}, nil)
	if err != nil {
		return nil, err
	}
	var out ValidateKeyResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// WhoAmI authenticates with apiKey itself.
func (c *Client) WhoAmI(ctx context.Context, apiKey string) (*WhoAmIResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/whoami", nil, map[string]string{
		c.KeyHeader: apiKey,
	})
	if err != nil {
		return nil, err
	}
	var out WhoAmIResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sweep runs the expiry sweep now. Admin only.
func (c *Client) Sweep(ctx context.Context) (*SweepResponse, error) {
	resp, err := c.doManagement(ctx, http.MethodPost, "/v1/housekeeping/sweep", nil)
	if err != nil {
		return nil, err
	}
	var out SweepResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ready calls /readyz and reports the decoded health.
func (c *Client) Ready(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/readyz", nil, nil)
	if err != nil {
		return nil, err
	}
	var out HealthResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
