package whatsapp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/hatchery/internal/config"
)

// Client exposes the WhatsApp Cloud API operations the hatchery uses.
type Client interface {
	SendTextMessage(ctx context.Context, req SendTextMessageRequest) (*SendTextMessageResponse, error)
	MarkRead(ctx context.Context, messageID string) error
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient    *resty.Client
	phoneNumberID string
}

// NewClient builds a WhatsApp API client using the provided configuration values.
func NewClient(cfg config.WhatsAppConfig) *APIClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	restyClient := resty.New()
	restyClient.
		SetBaseURL(fmt.Sprintf("%s/%s", base, cfg.APIVersion)).
		SetAuthToken(cfg.AccessToken).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})

	return &APIClient{
		httpClient:    restyClient,
		phoneNumberID: cfg.PhoneNumberID,
	}
}

// SendTextMessageRequest represents a simplified text message payload.
type SendTextMessageRequest struct {
	To         string
	Body       string
	PreviewURL bool
}

// SendTextMessageResponse mirrors the successful response from Meta.
type SendTextMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// MessageID returns the first accepted message id, if any.
func (r *SendTextMessageResponse) MessageID() string {
	if r == nil || len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0].ID
}

// APIError is the error payload returned by the Cloud API.
type APIError struct {
	Status int
	Body   struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

func (e *APIError) Error() string {
	code := e.Status
	if e.Body.Code != 0 {
		code = e.Body.Code
	}
	return fmt.Sprintf("whatsapp api error: code=%d, message=%s", code, e.Body.Message)
}

// SendTextMessage posts a plain text message.
func (c *APIClient) SendTextMessage(ctx context.Context, req SendTextMessageRequest) (*SendTextMessageResponse, error) {
	if strings.TrimSpace(req.To) == "" {
		return nil, fmt.Errorf("send whatsapp message: recipient required")
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                req.To,
		"type":              "text",
		"text": map[string]any{
			"body":        req.Body,
			"preview_url": req.PreviewURL,
		},
	}

	result := new(SendTextMessageResponse)
	if err := c.post(ctx, payload, result); err != nil {
		return nil, fmt.Errorf("send whatsapp message: %w", err)
	}
	return result, nil
}

// MarkRead acknowledges an inbound message so the operator sees the blue ticks.
func (c *APIClient) MarkRead(ctx context.Context, messageID string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
	}
	if err := c.post(ctx, payload, nil); err != nil {
		return fmt.Errorf("mark whatsapp message read: %w", err)
	}
	return nil
}

func (c *APIClient) post(ctx context.Context, payload any, result any) error {
	apiErr := new(APIError)
	req := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetError(apiErr)
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Post(fmt.Sprintf("%s/messages", c.phoneNumberID))
	if err != nil {
		return err
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		apiErr.Status = resp.StatusCode()
		return apiErr
	}
	return nil
}
