package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/hatchery/internal/config"
	"github.com/mamadbah2/hatchery/internal/domain/models"
	"github.com/mamadbah2/hatchery/internal/repository"
	"github.com/mamadbah2/hatchery/internal/service/admission"
	"github.com/mamadbah2/hatchery/internal/service/batches"
	"github.com/mamadbah2/hatchery/internal/service/commands"
	client "github.com/mamadbah2/hatchery/pkg/clients/whatsapp"
)

// ErrNoRecipient is returned by Notify when no operator number is configured.
var ErrNoRecipient = errors.New("no notification recipient configured")

// MessagingService describes the operations the HTTP layer can perform.
type MessagingService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	HandleWebhook(ctx context.Context, payload models.WebhookPayload) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg        config.WhatsAppConfig
	client     client.Client
	dispatcher commands.Dispatcher
	logger     *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance. dispatcher may be nil, in which
// case inbound messages only receive the help text.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, client client.Client, dispatcher commands.Dispatcher, logger *zap.Logger) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		cfg:        cfg,
		client:     client,
		dispatcher: dispatcher,
		logger:     logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

var commandReplies = map[models.CommandType]models.AutomationReply{
	models.CommandBatch: {
		Title:   "Batch Details",
		Message: "Show one batch and focus on it, e.g. /batch 12.",
	},
	models.CommandCounts: {
		Title:   "Progress Counts",
		Message: "Update hatched and discarded eggs, e.g. /counts 12 8 1 (or /counts 8 1 for the focused batch).",
	},
	models.CommandComplete: {
		Title:   "Complete Batch",
		Message: "Close a batch with its final counts, e.g. /complete 12 18 1.",
	},
	models.CommandStatus: {
		Title:   "Batch Status",
		Message: "Move a batch forward, e.g. /status 12 lockdown. Allowed: incubating, lockdown, hatching, completed, discarded.",
	},
	models.CommandNote: {
		Title:   "Batch Note",
		Message: "Attach a note, e.g. /note 12 turned eggs by hand.",
	},
	models.CommandCandle: {
		Title:   "Candling",
		Message: "Record a candling result, e.g. /candle 12 fertile 2 clears removed.",
	},
	models.CommandUnknown: {
		Title:   "Command Help",
		Message: "Unknown command. Supported: /batches, /batch, /counts, /complete, /status, /note, /candle, /report.",
	},
}

// VerifyWebhookToken validates the callback verification token.
func (s *MetaWhatsAppService) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode == "" || verifyToken == "" {
		return "", errors.New("missing mode or verify token")
	}

	if !strings.EqualFold(mode, "subscribe") {
		return "", fmt.Errorf("unsupported hub.mode %s", mode)
	}

	if verifyToken != s.cfg.VerifyToken {
		return "", errors.New("invalid verify token")
	}

	return challenge, nil
}

// HandleWebhook processes inbound webhook payloads.
func (s *MetaWhatsAppService) HandleWebhook(ctx context.Context, payload models.WebhookPayload) error {
	if len(payload.Entry) == 0 {
		return nil
	}

	var firstErr error

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if err := s.handleInboundMessage(ctx, msg); err != nil {
					s.logger.Error("failed to handle inbound message", zap.Error(err), zap.String("message_id", msg.ID))
					if firstErr == nil {
						firstErr = err
					}
				}
			}
		}
	}

	return firstErr
}

func (s *MetaWhatsAppService) handleInboundMessage(ctx context.Context, msg models.InboundMessage) error {
	text := extractMessageText(msg)
	if text == "" {
		s.logger.Debug("ignoring message without text", zap.String("message_id", msg.ID), zap.String("type", msg.Type))
		return nil
	}

	cmd := models.ParseCommand(text)
	s.logger.Info("parsed inbound command",
		zap.String("from", msg.From),
		zap.String("command", string(cmd.Type)),
		zap.Any("args", cmd.Args))

	outbound := s.execute(ctx, cmd, msg.From)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if msg.ID != "" {
		if err := s.client.MarkRead(ctxWithTimeout, msg.ID); err != nil {
			s.logger.Debug("mark read failed", zap.Error(err))
		}
	}

	_, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         msg.From,
		Body:       outbound,
		PreviewURL: false,
	})
	return err
}

// execute turns a command into reply text. Domain failures become readable replies
// rather than webhook errors.
func (s *MetaWhatsAppService) execute(ctx context.Context, cmd models.Command, sender string) string {
	if s.dispatcher == nil {
		return helpFor(cmd.Type)
	}

	reply, err := s.dispatcher.HandleCommand(ctx, cmd, sender)
	switch {
	case err == nil:
		return reply
	case errors.Is(err, commands.ErrInvalidArguments), errors.Is(err, commands.ErrUnsupportedCommand):
		return helpFor(cmd.Type)
	case errors.Is(err, repository.ErrNotFound):
		return "That batch does not exist. Send /batches to see active ones."
	case errors.Is(err, batches.ErrInvalidTransition),
		errors.Is(err, batches.ErrInvalidCounts),
		errors.Is(err, batches.ErrInvalidRequest),
		errors.Is(err, admission.ErrCapacityExceeded):
		return "Rejected: " + err.Error()
	default:
		s.logger.Error("command failed", zap.String("command", string(cmd.Type)), zap.Error(err))
		return "Something went wrong, please retry in a moment."
	}
}

func helpFor(t models.CommandType) string {
	reply, ok := commandReplies[t]
	if !ok {
		reply = commandReplies[models.CommandUnknown]
	}
	return fmt.Sprintf("%s\n%s", reply.Title, reply.Message)
}

// SendOutbound lets internal operators push quick notifications via HTTP.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         req.To,
		Body:       req.Message,
		PreviewURL: req.PreviewURL,
	})
	if err != nil {
		return err
	}
	s.logger.Debug("whatsapp message sent", zap.String("to", req.To), zap.String("message_id", resp.MessageID()))
	return nil
}

// Notify delivers a reminder or alert to the configured operator number.
func (s *MetaWhatsAppService) Notify(ctx context.Context, n models.Notification) error {
	if s.cfg.NotifyTo == "" {
		return ErrNoRecipient
	}
	body := fmt.Sprintf("*%s*\n%s", n.Title, n.Body)
	if err := s.SendOutbound(ctx, models.OutboundMessageRequest{To: s.cfg.NotifyTo, Message: body}); err != nil {
		return fmt.Errorf("notify %s #%d: %w", n.Channel, n.ID, err)
	}
	return nil
}

func extractMessageText(msg models.InboundMessage) string {
	if msg.Text != nil {
		return strings.TrimSpace(msg.Text.Body)
	}

	if msg.Interactive != nil {
		if msg.Interactive.ButtonReply != nil {
			return msg.Interactive.ButtonReply.ID
		}
		if msg.Interactive.ListReply != nil {
			return msg.Interactive.ListReply.ID
		}
	}

	return ""
}
