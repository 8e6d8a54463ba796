package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

const defaultBaseURL = "https://api.sendgrid.com"

type Client struct {
	APIKey  string
	HTTP    *http.Client
	BaseURL string
}

type mailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type personalization struct {
	To []mailAddress `json:"to"`
}

type sendPayload struct {
	Personalizations []personalization `json:"personalizations"`
	From             mailAddress       `json:"from"`
	TemplateID       string            `json:"template_id"`
}

// SendTemplate issues one dynamic-template send to a single recipient and
// returns the HTTP status plus raw body. SendGrid answers 202 on acceptance;
// the caller decides what counts as success.
func (c *Client) SendTemplate(ctx context.Context, from, fromName, to, templateID string) (int, []byte, error) {
	payload := sendPayload{
		Personalizations: []personalization{{To: []mailAddress{{Email: to}}}},
		From:             mailAddress{Email: from, Name: fromName},
		TemplateID:       templateID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	baseURL := strings.TrimRight(c.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	endpoint := baseURL + "/v3/mail/send"
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}
