package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mamadbah2/hatchery/internal/domain/models"
)

type mockMessaging struct {
	mock.Mock
}

func (m *mockMessaging) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	args := m.Called(mode, verifyToken, challenge)
	return args.String(0), args.Error(1)
}

func (m *mockMessaging) HandleWebhook(ctx context.Context, payload models.WebhookPayload) error {
	return m.Called(ctx, payload).Error(0)
}

func (m *mockMessaging) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	return m.Called(ctx, req).Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, n models.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func webhookEngine(svc *mockMessaging, notifier *mockNotifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	var h *WebhookHandler
	if notifier != nil {
		h = NewWebhookHandler(svc, notifier, nil)
	} else {
		h = NewWebhookHandler(svc, nil, nil)
	}
	r := gin.New()
	r.GET("/webhook", h.Verify)
	r.POST("/webhook", h.Receive)
	r.POST("/send-message", h.SendMessage)
	r.POST("/notifications/test", h.TestNotification)
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookVerify(t *testing.T) {
	svc := new(mockMessaging)
	svc.On("VerifyWebhookToken", "subscribe", "secret", "99").Return("99", nil)
	svc.On("VerifyWebhookToken", "subscribe", "nope", "99").Return("", errors.New("token mismatch"))
	r := webhookEngine(svc, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=secret&hub.challenge=99", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "99", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=99", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestWebhookReceive(t *testing.T) {
	svc := new(mockMessaging)
	svc.On("HandleWebhook", mock.Anything, mock.AnythingOfType("models.WebhookPayload")).Return(nil).Once()
	svc.On("HandleWebhook", mock.Anything, mock.Anything).Return(errors.New("send failed")).Once()
	r := webhookEngine(svc, nil)

	assert.Equal(t, http.StatusOK, postJSON(r, "/webhook", `{"object":"whatsapp_business_account","entry":[]}`).Code)
	// processing failures are still acknowledged
	assert.Equal(t, http.StatusOK, postJSON(r, "/webhook", `{"entry":[]}`).Code)
	assert.Equal(t, http.StatusOK, postJSON(r, "/webhook", `{"object":"page","entry":[]}`).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(r, "/webhook", `{`).Code)
	svc.AssertNumberOfCalls(t, "HandleWebhook", 2)
}

func TestSendMessage(t *testing.T) {
	svc := new(mockMessaging)
	svc.On("SendOutbound", mock.Anything, models.OutboundMessageRequest{To: "224", Message: "Hatch day"}).Return(nil)
	r := webhookEngine(svc, nil)

	assert.Equal(t, http.StatusAccepted, postJSON(r, "/send-message", `{"to":"224","message":"Hatch day"}`).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(r, "/send-message", `{"to":"224"}`).Code)
}

func TestTestNotification(t *testing.T) {
	notifier := new(mockNotifier)
	notifier.On("Notify", mock.Anything, models.Notification{Title: "Ping", Body: "hello", Channel: models.ChannelAlerts}).Return(nil).Once()
	notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("no recipient")).Once()
	r := webhookEngine(new(mockMessaging), notifier)

	assert.Equal(t, http.StatusAccepted, postJSON(r, "/notifications/test", `{"title":"Ping","body":"hello"}`).Code)
	assert.Equal(t, http.StatusBadGateway, postJSON(r, "/notifications/test", `{"title":"Ping","body":"again"}`).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(r, "/notifications/test", `{"title":"Ping"}`).Code)

	r = webhookEngine(new(mockMessaging), nil)
	assert.Equal(t, http.StatusServiceUnavailable, postJSON(r, "/notifications/test", `{"title":"Ping","body":"x"}`).Code)
}
