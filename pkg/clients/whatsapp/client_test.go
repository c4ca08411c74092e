package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/hatchery/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *APIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(config.WhatsAppConfig{BaseURL: srv.URL + "/", APIVersion: "v20.0", AccessToken: "tok", PhoneNumberID: "555"})
	c.httpClient.SetRetryCount(0)
	return c
}

func TestSendTextMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v20.0/555/messages", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "224000", body["to"])
		assert.Equal(t, "text", body["type"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	})

	resp, err := c.SendTextMessage(context.Background(), SendTextMessageRequest{To: "224000", Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "wamid.1", resp.MessageID())
}

func TestSendTextMessage_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad recipient","code":131030}}`))
	})

	_, err := c.SendTextMessage(context.Background(), SendTextMessageRequest{To: "1", Body: "x"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 131030, apiErr.Body.Code)
	assert.Contains(t, err.Error(), "bad recipient")

	_, err = c.SendTextMessage(context.Background(), SendTextMessageRequest{Body: "x"})
	assert.Error(t, err)
}

func TestMarkRead(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "read", body["status"])
		assert.Equal(t, "wamid.9", body["message_id"])
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	assert.NoError(t, c.MarkRead(context.Background(), "wamid.9"))
}
