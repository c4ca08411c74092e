package whatsapp

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/hatchery/internal/config"
	"github.com/mamadbah2/hatchery/internal/domain/models"
	"github.com/mamadbah2/hatchery/internal/repository"
	"github.com/mamadbah2/hatchery/internal/service/batches"
	"github.com/mamadbah2/hatchery/internal/service/commands"
	client "github.com/mamadbah2/hatchery/pkg/clients/whatsapp"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) SendTextMessage(ctx context.Context, req client.SendTextMessageRequest) (*client.SendTextMessageResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*client.SendTextMessageResponse)
	return resp, args.Error(1)
}

func (m *mockClient) MarkRead(ctx context.Context, messageID string) error {
	return m.Called(ctx, messageID).Error(0)
}

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error) {
	args := m.Called(ctx, cmd.Type, sender)
	return args.String(0), args.Error(1)
}

func textPayload(from, id, body string) models.WebhookPayload {
	return models.WebhookPayload{Entry: []models.WebhookEntry{{Changes: []models.WebhookChange{{
		Value: models.WebhookValue{Messages: []models.InboundMessage{{
			From: from, ID: id, Type: "text", Text: &models.TextContent{Body: body},
		}}},
	}}}}}
}

func TestVerifyWebhookToken(t *testing.T) {
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{VerifyToken: "secret"}, nil, nil, nil)

	challenge, err := svc.VerifyWebhookToken("subscribe", "secret", "42")
	require.NoError(t, err)
	assert.Equal(t, "42", challenge)

	_, err = svc.VerifyWebhookToken("subscribe", "wrong", "42")
	assert.Error(t, err)
	_, err = svc.VerifyWebhookToken("unsubscribe", "secret", "42")
	assert.Error(t, err)
}

func TestHandleWebhook_RepliesWithDispatcherResult(t *testing.T) {
	cl := new(mockClient)
	d := new(mockDispatcher)
	d.On("HandleCommand", mock.Anything, models.CommandBatches, "224").Return("No active batches.", nil)
	cl.On("MarkRead", mock.Anything, "wamid.1").Return(nil)
	cl.On("SendTextMessage", mock.Anything, client.SendTextMessageRequest{To: "224", Body: "No active batches."}).
		Return(&client.SendTextMessageResponse{}, nil)

	svc := NewMetaWhatsAppService(config.WhatsAppConfig{}, cl, d, nil)
	require.NoError(t, svc.HandleWebhook(context.Background(), textPayload("224", "wamid.1", " /batches ")))
	cl.AssertExpectations(t)
	d.AssertExpectations(t)
}

func TestHandleWebhook_MapsErrorsToReplies(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{commands.ErrInvalidArguments, "Progress Counts"},
		{fmt.Errorf("load batch: %w", repository.ErrNotFound), "does not exist"},
		{fmt.Errorf("%w: too many", batches.ErrInvalidCounts), "Rejected: invalid batch counts: too many"},
		{assert.AnError, "Something went wrong"},
	}

	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			cl := new(mockClient)
			d := new(mockDispatcher)
			d.On("HandleCommand", mock.Anything, models.CommandCounts, "224").Return("", tc.err)
			cl.On("MarkRead", mock.Anything, mock.Anything).Return(nil)
			cl.On("SendTextMessage", mock.Anything, mock.MatchedBy(func(req client.SendTextMessageRequest) bool {
				return strings.Contains(req.Body, tc.want)
			})).Return(&client.SendTextMessageResponse{}, nil)

			svc := NewMetaWhatsAppService(config.WhatsAppConfig{}, cl, d, nil)
			require.NoError(t, svc.HandleWebhook(context.Background(), textPayload("224", "wamid.2", "/counts 1 2")))
			cl.AssertExpectations(t)
		})
	}
}

func TestNotify(t *testing.T) {
	cl := new(mockClient)
	cl.On("SendTextMessage", mock.Anything, client.SendTextMessageRequest{To: "224999", Body: "*Hatch Day!*\nBatch #4 is expected to hatch today."}).
		Return(&client.SendTextMessageResponse{}, nil)

	svc := NewMetaWhatsAppService(config.WhatsAppConfig{NotifyTo: "224999"}, cl, nil, nil)
	err := svc.Notify(context.Background(), models.Notification{ID: 42, Title: "Hatch Day!", Body: "Batch #4 is expected to hatch today.", Channel: models.ChannelReminders})
	require.NoError(t, err)
	cl.AssertExpectations(t)

	err = NewMetaWhatsAppService(config.WhatsAppConfig{}, cl, nil, nil).Notify(context.Background(), models.Notification{})
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestSessionManager_ExpiresFocus(t *testing.T) {
	sm := NewSessionManager(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	sm.now = func() time.Time { return now }

	sm.SetFocus("224", 9)
	id, ok := sm.Focus("224")
	require.True(t, ok)
	assert.Equal(t, int64(9), id)

	now = now.Add(2 * time.Minute)
	_, ok = sm.Focus("224")
	assert.False(t, ok)
	assert.Equal(t, 1, sm.Prune())

	sm.SetFocus("224", 10)
	sm.ClearSession("224")
	_, ok = sm.Focus("224")
	assert.False(t, ok)
}
