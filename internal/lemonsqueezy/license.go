package lemonsqueezy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// LicenseResult is the outcome of an activate or validate call.
type LicenseResult struct {
	Valid         bool
	Message       string
	InstanceID    string
	CustomerEmail string
	CustomerName  string
	ProductName   string
}

// LicenseClient talks to the Lemon Squeezy license API. The license
// endpoints are unauthenticated; the license key itself is the credential.
type LicenseClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewLicenseClient creates a license API client.
func NewLicenseClient(baseURL string) *LicenseClient {
	return &LicenseClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// licenseResponse is the wire shape shared by activate/validate/deactivate.
type licenseResponse struct {
	Activated   bool    `json:"activated"`
	Valid       bool    `json:"valid"`
	Deactivated bool    `json:"deactivated"`
	Error       *string `json:"error"`
	LicenseKey  *struct {
		Status          string `json:"status"`
		Key             string `json:"key"`
		ActivationLimit int    `json:"activation_limit"`
		ActivationUsage int    `json:"activation_usage"`
	} `json:"license_key"`
	Instance *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"instance"`
	Meta *struct {
		CustomerName  string `json:"customer_name"`
		CustomerEmail string `json:"customer_email"`
		ProductName   string `json:"product_name"`
	} `json:"meta"`
}

// errorTranslations maps known provider error substrings to messages
// suitable for showing to the user. Unrecognized errors pass through.
var errorTranslations = []struct {
	substr  string
	message string
}{
	{"not found", "Invalid license key"},
	{"disabled", "This license key has been disabled"},
	{"activation limit", "Activation limit reached for this license key"},
	{"expired", "This license key has expired"},
}

func translateError(raw string) string {
	lower := strings.ToLower(raw)
	for _, t := range errorTranslations {
		if strings.Contains(lower, t.substr) {
			return t.message
		}
	}
	return raw
}

// Activate activates a license key against a named instance. The instance
// name should be stable per installation so re-activation reuses a seat.
func (c *LicenseClient) Activate(ctx context.Context, key, instanceName string) (*LicenseResult, error) {
	form := url.Values{
		"license_key":   {key},
		"instance_name": {instanceName},
	}
	resp, err := c.post(ctx, "/licenses/activate", form)
	if err != nil {
		return nil, err
	}

	result := &LicenseResult{Valid: resp.Activated}
	if resp.Instance != nil {
		result.InstanceID = resp.Instance.ID
	}
	if resp.Meta != nil {
		result.CustomerEmail = resp.Meta.CustomerEmail
		result.CustomerName = resp.Meta.CustomerName
		result.ProductName = resp.Meta.ProductName
	}
	if resp.Activated {
		result.Message = "License activated"
	} else if resp.Error != nil {
		result.Message = translateError(*resp.Error)
	} else {
		result.Message = "License activation failed"
	}
	return result, nil
}

// Validate checks that a previously activated key is still valid.
func (c *LicenseClient) Validate(ctx context.Context, key, instanceID string) (*LicenseResult, error) {
	form := url.Values{"license_key": {key}}
	if instanceID != "" {
		form.Set("instance_id", instanceID)
	}
	resp, err := c.post(ctx, "/licenses/validate", form)
	if err != nil {
		return nil, err
	}

	result := &LicenseResult{Valid: resp.Valid}
	if resp.Meta != nil {
		result.CustomerEmail = resp.Meta.CustomerEmail
		result.CustomerName = resp.Meta.CustomerName
		result.ProductName = resp.Meta.ProductName
	}
	if resp.Valid {
		result.Message = "License valid"
	} else if resp.Error != nil {
		result.Message = translateError(*resp.Error)
	} else {
		result.Message = "License is no longer valid"
	}
	return result, nil
}

// Deactivate releases an activated instance. Callers treat failures as
// best-effort; local cleanup proceeds regardless.
func (c *LicenseClient) Deactivate(ctx context.Context, key, instanceID string) (bool, error) {
	form := url.Values{
		"license_key": {key},
		"instance_id": {instanceID},
	}
	resp, err := c.post(ctx, "/licenses/deactivate", form)
	if err != nil {
		return false, err
	}
	return resp.Deactivated, nil
}

func (c *LicenseClient) post(ctx context.Context, path string, form url.Values) (*licenseResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("license API request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	// The license API uses 400/404 for invalid keys but still returns the
	// JSON body, so decode regardless of status.
	var resp licenseResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("license API returned unexpected response: %w", err)
	}
	return &resp, nil
}
