package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/hrline/taishokubot/internal/admin"
	"github.com/hrline/taishokubot/internal/dialogue"
	"github.com/hrline/taishokubot/internal/faq"
	"github.com/hrline/taishokubot/internal/gateway"
	"github.com/hrline/taishokubot/internal/intent"
	"github.com/hrline/taishokubot/internal/models"
	"github.com/hrline/taishokubot/internal/session"
)

// activationPrefix gates group and room messages: without it the bot stays
// silent so it never spams a group chat.
const activationPrefix = "!hr"

const textFallback = "Sorry, I couldn't find an answer for that. Type \"quit\" to start a quitting request, or ask an HR question.\nすみません、回答が見つかりませんでした。退職申請を開始するには「退職」と入力してください。"

// ReplySender delivers the reply for one event through its one-time reply
// handle. Failures are logged upstream, never retried.
type ReplySender interface {
	Reply(ctx context.Context, replyToken string, messages []models.Sendable) error
}

type Dependencies struct {
	Sessions *session.Store     `validate:"required"`
	FAQ      *faq.Resolver      `validate:"required"`
	Dialogue *dialogue.Machine  `validate:"required"`
	Admin    *admin.Gate        `validate:"required"`
	Gateway  dialogue.Submitter `validate:"required"`
	Reply    ReplySender        `validate:"required"`
}

func (d *Dependencies) Validate() error {
	return validator.New().Struct(d)
}

// Router turns one inbound event into zero or more replies. Pipeline:
// group filter, empty-text guard, cancel check, authorization check,
// session continuation, flow start, FAQ fallback.
type Router struct {
	deps Dependencies
}

func NewRouter(deps Dependencies) (*Router, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	return &Router{deps: deps}, nil
}

func (r *Router) HandleEvent(ctx context.Context, event models.Event) error {
	if event.Type != models.EventTypeMessage || event.Message.Type != models.MessageTypeText {
		log.Debugf("router.HandleEvent: skipped event type %q/%q", event.Type, event.Message.Type)
		return nil
	}
	if event.ReplyToken == "" {
		log.Warn("router.HandleEvent: event without reply token skipped")
		return nil
	}

	text, ok := filterGroupText(event.Source.Type, event.Message.Text)
	if !ok {
		return nil
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	senderID := event.Source.UserID

	// Without a sender id there is no session and no authorization, so FAQ
	// resolution is the only possible outcome.
	if senderID == "" {
		return r.replyFAQ(ctx, event.ReplyToken, text)
	}

	slot := r.deps.Sessions.Acquire(senderID)
	defer slot.Release()

	current, open := slot.Get()

	switch classified := intent.Classify(text, open); classified {

	case intent.Cancel:
		slot.Delete()
		return r.reply(ctx, event.ReplyToken, []models.Sendable{dialogue.CancelAcknowledgement()})

	case intent.AdminCommand:
		return r.handleAdminCommand(ctx, event.ReplyToken, senderID, text)

	case intent.FlowStartQuit:
		next, messages := r.deps.Dialogue.Start(senderID, models.FlowQuit)
		slot.Set(next)
		return r.reply(ctx, event.ReplyToken, messages)

	case intent.FlowStartCancelRequest:
		next, messages := r.deps.Dialogue.Start(senderID, models.FlowCancelRequest)
		slot.Set(next)
		return r.reply(ctx, event.ReplyToken, messages)

	case intent.Continuation:
		next, messages := r.deps.Dialogue.Advance(ctx, current, text)
		if next == nil {
			slot.Delete()
		} else {
			slot.Set(*next)
		}
		return r.reply(ctx, event.ReplyToken, messages)

	default:
		return r.replyFAQ(ctx, event.ReplyToken, text)
	}
}

// handleAdminCommand never touches session state: a denied or malformed
// command leaves an open dialogue exactly where it was.
func (r *Router) handleAdminCommand(ctx context.Context, replyToken, senderID, text string) error {
	if !r.deps.Admin.IsAuthorized(senderID) {
		log.Warnf("router.handleAdminCommand: denied sender %s", senderID)
		return r.reply(ctx, replyToken, []models.Sendable{models.TextMessage(admin.MessageDenied)})
	}

	command, err := admin.ParseCommand(text)
	if err != nil {
		return r.reply(ctx, replyToken, []models.Sendable{models.TextMessage(admin.MessageUsage)})
	}

	result := r.deps.Gateway.Submit(ctx, gateway.SubmitParams{
		Action: command.Action(),
		Fields: map[string]string{
			"request_id": command.RequestID,
			"comment":    command.Comment,
			"actor":      senderID,
		},
	})
	if !result.OK {
		log.Errorf("router.handleAdminCommand: gateway.Submit: kind %s: %s", result.Kind, result.Detail)

		return r.reply(ctx, replyToken, []models.Sendable{models.TextMessage(fmt.Sprintf(
			"Could not %s request %s. Please check the request id or try again later.\n申請 %s の処理に失敗しました。",
			command.Verb, command.RequestID, command.RequestID,
		))})
	}

	return r.reply(ctx, replyToken, []models.Sendable{models.TextMessage(fmt.Sprintf(
		"Done: %s %s\n完了しました: %s %s",
		command.Verb, command.RequestID, command.Verb, command.RequestID,
	))})
}

func (r *Router) replyFAQ(ctx context.Context, replyToken, text string) error {
	answer, ok := r.deps.FAQ.Resolve(text)
	if !ok {
		answer = textFallback
	}

	return r.reply(ctx, replyToken, []models.Sendable{models.TextMessage(answer)})
}

func (r *Router) reply(ctx context.Context, replyToken string, messages []models.Sendable) error {
	if err := r.deps.Reply.Reply(ctx, replyToken, messages); err != nil {
		// There is no secondary channel to surface this to the user.
		log.Errorf("router.reply: r.deps.Reply.Reply: %v", err)
		return fmt.Errorf("reply: %w", err)
	}
	return nil
}

// filterGroupText applies the group activation prefix. Direct messages
// always pass unmodified; group and room messages pass only when they start
// with the prefix, which is stripped together with surrounding whitespace.
func filterGroupText(sourceType, text string) (string, bool) {
	if sourceType == models.SourceTypeUser || sourceType == "" {
		return text, true
	}

	trimmed := strings.TrimSpace(text)
	if len(trimmed) < len(activationPrefix) {
		return "", false
	}
	if !strings.EqualFold(trimmed[:len(activationPrefix)], activationPrefix) {
		return "", false
	}

	return strings.TrimSpace(trimmed[len(activationPrefix):]), true
}
