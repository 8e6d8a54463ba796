package wati

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"campaigns/internal/domain"
	"campaigns/internal/util"
)

type Client struct {
	BaseURL       string
	Token         string
	ChannelNumber string
	HTTP          *http.Client
}

// New validates credentials up front; a missing base URL or token is a
// configuration error, not a per-call failure.
func New(baseURL, token, channelNumber string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, &domain.ConfigurationError{Setting: "WATI_API_BASE_URL"}
	}
	// the Authorization header gets its own Bearer prefix
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return nil, &domain.ConfigurationError{Setting: "WATI_API_TOKEN"}
	}
	return &Client{
		BaseURL:       baseURL,
		Token:         token,
		ChannelNumber: channelNumber,
		HTTP:          httpClient,
	}, nil
}

type Template struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type templatesResponse struct {
	MessageTemplates []struct {
		ID          json.Number `json:"id"`
		ElementName string      `json:"elementName"`
		Status      string      `json:"status"`
	} `json:"messageTemplates"`
}

// GetTemplates lists approved templates by element name and id. Entries that
// are not APPROVED are unusable and filtered out.
func (c *Client) GetTemplates(ctx context.Context) ([]Template, error) {
	status, body, err := c.get(ctx, "/api/v1/getMessageTemplates")
	if err != nil {
		return nil, &domain.TransportError{Provider: "WATI", Err: err}
	}
	if status != http.StatusOK {
		return nil, &domain.VendorError{Provider: "WATI", StatusCode: status, Body: truncate(body, 500)}
	}

	var out templatesResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &domain.VendorError{Provider: "WATI", StatusCode: status, Body: truncate(body, 500), Message: "malformed template list"}
	}

	templates := make([]Template, 0, len(out.MessageTemplates))
	for _, t := range out.MessageTemplates {
		if t.Status != "APPROVED" {
			continue
		}
		templates = append(templates, Template{Name: t.ElementName, ID: t.ID.String()})
	}
	return templates, nil
}

// GetTemplateIDByName resolves an approved template id by element name.
// Returns "" when no approved template carries the name.
func (c *Client) GetTemplateIDByName(ctx context.Context, name string) (string, error) {
	templates, err := c.GetTemplates(ctx)
	if err != nil {
		return "", err
	}
	for _, t := range templates {
		if t.Name == name {
			return t.ID, nil
		}
	}
	return "", nil
}

type Contact struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	WhatsAppID string `json:"whatsapp_id"`
}

type contactsResponse struct {
	ContactList []struct {
		WAid      string `json:"wAId"`
		Phone     string `json:"phone"`
		FullName  string `json:"fullName"`
		FirstName string `json:"firstName"`
	} `json:"contact_list"`
}

// GetContacts lists vendor-side contacts, preferring fullName over firstName
// over the phone itself, with the phone normalized to a leading +.
func (c *Client) GetContacts(ctx context.Context) ([]Contact, error) {
	status, body, err := c.get(ctx, "/api/v1/getContacts")
	if err != nil {
		return nil, &domain.TransportError{Provider: "WATI", Err: err}
	}
	if status != http.StatusOK {
		return nil, &domain.VendorError{Provider: "WATI", StatusCode: status, Body: truncate(body, 500)}
	}

	var out contactsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &domain.VendorError{Provider: "WATI", StatusCode: status, Body: truncate(body, 500), Message: "malformed contact list"}
	}

	contacts := make([]Contact, 0, len(out.ContactList))
	for _, raw := range out.ContactList {
		waID := raw.WAid
		if waID == "" {
			waID = raw.Phone
		}
		name := raw.FullName
		if name == "" {
			name = raw.FirstName
		}
		if name == "" {
			name = waID
		}
		phone := waID
		if !strings.HasPrefix(phone, "+") {
			phone = "+" + phone
		}
		contacts = append(contacts, Contact{Name: name, Phone: phone, WhatsAppID: waID})
	}
	return contacts, nil
}

type SendTemplateRequest struct {
	WhatsAppNumber string
	TemplateName   string
	BroadcastName  string
	Parameters     []domain.Parameter
}

type SendResponse struct {
	Result  json.RawMessage `json:"result"`
	Message string          `json:"message"`
}

// OK reports whether the vendor result field is the boolean true or the
// string "success".
func (r SendResponse) OK() bool {
	switch strings.Trim(string(r.Result), `"`) {
	case "true", "success":
		return true
	}
	return false
}

type sendTemplateBody struct {
	TemplateName  string             `json:"template_name"`
	BroadcastName string             `json:"broadcast_name"`
	ChannelNumber int64              `json:"channel_number"`
	Parameters    []domain.Parameter `json:"parameters"`
}

// SendTemplateMessage posts one templated message. The destination number
// rides in the query string as bare digits; the channel number goes in the
// body, digits only and forced to start with the 91 country prefix.
func (c *Client) SendTemplateMessage(ctx context.Context, req SendTemplateRequest) (SendResponse, int, []byte, error) {
	params := req.Parameters
	if params == nil {
		params = []domain.Parameter{}
	}
	payload := sendTemplateBody{
		TemplateName:  req.TemplateName,
		BroadcastName: req.BroadcastName,
		ChannelNumber: c.channelNumber(),
		Parameters:    params,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return SendResponse{}, 0, nil, err
	}

	to := strings.TrimPrefix(req.WhatsAppNumber, "+")
	endpoint := c.BaseURL + "/api/v2/sendTemplateMessage?whatsappNumber=" + to

	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	c.setHeaders(httpReq)

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return SendResponse{}, 0, nil, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	var out SendResponse
	_ = json.Unmarshal(raw, &out)
	return out, resp.StatusCode, raw, nil
}

func (c *Client) channelNumber() int64 {
	digits := util.DigitsOnly(c.ChannelNumber)
	if !strings.HasPrefix(digits, "91") {
		digits = "91" + digits
	}
	n, _ := strconv.ParseInt(digits, 10, 64)
	return n
}

func (c *Client) get(ctx context.Context, path string) (int, []byte, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	c.setHeaders(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")
}

func truncate(b []byte, n int) string {
	s := string(b)
	if len(s) > n {
		return s[:n]
	}
	return s
}
