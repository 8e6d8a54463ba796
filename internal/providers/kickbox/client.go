package kickbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const defaultBaseURL = "https://api.kickbox.com"

// Verification result values as returned by the vendor.
const (
	ResultDeliverable   = "deliverable"
	ResultUndeliverable = "undeliverable"
	ResultRisky         = "risky"
	ResultUnknown       = "unknown"
)

type Client struct {
	APIKey  string
	HTTP    *http.Client
	BaseURL string
}

type VerifyResponse struct {
	Result string `json:"result"`
	Reason string `json:"reason"`
	Email  string `json:"email"`
}

// Verify checks a single mailbox. A non-200 answer is reported via the
// returned status so the caller can classify the address as unknown.
func (c *Client) Verify(ctx context.Context, email string) (VerifyResponse, int, error) {
	baseURL := strings.TrimRight(c.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	q := url.Values{}
	q.Set("email", email)
	q.Set("apikey", c.APIKey)
	endpoint := baseURL + "/v2/verify?" + q.Encode()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return VerifyResponse{}, 0, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return VerifyResponse{}, resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var out VerifyResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return VerifyResponse{}, resp.StatusCode, err
	}
	return out, resp.StatusCode, nil
}
