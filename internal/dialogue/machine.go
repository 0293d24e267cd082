package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/hrline/taishokubot/internal/gateway"
	"github.com/hrline/taishokubot/internal/models"
	"github.com/hrline/taishokubot/internal/validate"
)

// Submitter is the slice of the gateway client the machine needs. Tests
// plug in a fake; production wires *gateway.Client.
type Submitter interface {
	Submit(ctx context.Context, params gateway.SubmitParams) gateway.Result
}

type Dependencies struct {
	Gateway Submitter `validate:"required"`
}

func (d *Dependencies) Validate() error {
	return validator.New().Struct(d)
}

// Machine owns the transitions of both dialogue flows. It never touches
// the session store: the router holds the user's slot and applies whatever
// session the machine returns. A nil next session means the dialogue is
// over and the session must be deleted.
type Machine struct {
	deps Dependencies
}

func NewMachine(deps Dependencies) (*Machine, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	return &Machine{deps: deps}, nil
}

// Start opens a fresh session for the given flow. It also serves context
// switching: a flow trigger mid-dialogue replaces whatever was open.
func (m *Machine) Start(userID models.UserID, flow models.Flow) (models.Session, []models.Sendable) {
	session := models.Session{
		UserID: userID,
		Flow:   flow,
	}

	switch flow {
	case models.FlowCancelRequest:
		session.Step = models.StepAwaitingCancelStaffID
		return session, []models.Sendable{models.TextMessage(textCancelStaffIDPrompt)}

	default:
		session.Step = models.StepAwaitingStaffID
		return session, []models.Sendable{models.TextMessage(textStaffIDPrompt)}
	}
}

// Advance consumes one message for an open session. Validation failures
// leave the session exactly as it was and re-prompt; every gateway outcome,
// success or failure, ends the dialogue so the user is never trapped in a
// dead state.
func (m *Machine) Advance(ctx context.Context, session models.Session, text string) (*models.Session, []models.Sendable) {
	switch session.Step {

	case models.StepAwaitingStaffID:
		value := validate.Normalize(text)
		if err := validate.StaffID(value); err != nil {
			return &session, []models.Sendable{models.TextMessage(textStaffIDRetry)}
		}

		session.Fields.StaffID = value
		session.Step = models.StepAwaitingDate

		return &session, []models.Sendable{models.TextMessage(textDatePrompt)}

	case models.StepAwaitingDate:
		value := validate.Normalize(text)
		if err := validate.Date(value); err != nil {
			return &session, []models.Sendable{models.TextMessage(textDateRetry)}
		}

		session.Fields.QuittingDate = value
		session.Step = models.StepAwaitingReason

		return &session, []models.Sendable{reasonMenuMessage()}

	case models.StepAwaitingReason:
		reason, err := validate.MatchReason(text)
		if err != nil {
			return &session, []models.Sendable{reasonMenuMessage()}
		}

		session.Fields.Reason = reason.LabelEN

		if reason.Other {
			session.Step = models.StepAwaitingComment
			return &session, []models.Sendable{models.TextMessage(textCommentPrompt)}
		}

		session.Fields.Comment = ""
		session.Step = models.StepAwaitingConfirmation

		return &session, []models.Sendable{confirmationMessage(session.Fields)}

	case models.StepAwaitingComment:
		value := strings.TrimSpace(text)
		if err := validate.Comment(value); err != nil {
			return &session, []models.Sendable{models.TextMessage(textCommentRetry)}
		}
		if validate.IsNoneToken(value) {
			value = ""
		}

		session.Fields.Comment = value
		session.Step = models.StepAwaitingConfirmation

		return &session, []models.Sendable{confirmationMessage(session.Fields)}

	case models.StepAwaitingConfirmation:
		if !matchesToken(text, submitTokens) {
			// The cancel option never reaches this point: the router
			// classifies cancel words before the machine runs.
			return &session, []models.Sendable{confirmationMessage(session.Fields)}
		}

		return nil, []models.Sendable{m.submitQuittingRequest(ctx, session)}

	case models.StepAwaitingCancelStaffID:
		value := validate.Normalize(text)
		if err := validate.StaffID(value); err != nil {
			return &session, []models.Sendable{models.TextMessage(textStaffIDRetry)}
		}

		session.Fields.StaffID = value
		session.Step = models.StepAwaitingCancelConfirm

		return &session, []models.Sendable{cancelConfirmMessage(value)}

	case models.StepAwaitingCancelConfirm:
		switch {
		case matchesToken(text, yesTokens):
			return nil, []models.Sendable{m.withdrawQuittingRequest(ctx, session)}

		case matchesToken(text, noTokens):
			return nil, []models.Sendable{models.TextMessage(textCancelRequestAborted)}

		default:
			return &session, []models.Sendable{cancelConfirmMessage(session.Fields.StaffID)}
		}

	default:
		log.Errorf("dialogue.Advance: unknown step %q for user %s: session dropped", session.Step, session.UserID)

		return nil, []models.Sendable{models.TextMessage(textSubmitFailed)}
	}
}

func (m *Machine) submitQuittingRequest(ctx context.Context, session models.Session) models.Sendable {
	result := m.deps.Gateway.Submit(ctx, gateway.SubmitParams{
		Action: gateway.ActionCreateQuittingRequest,
		Fields: map[string]string{
			"staff_id":      session.Fields.StaffID,
			"quitting_date": session.Fields.QuittingDate,
			"reason":        session.Fields.Reason,
			"comment":       session.Fields.Comment,
		},
	})
	if !result.OK {
		log.Errorf("dialogue.submitQuittingRequest: gateway.Submit: kind %s: %s", result.Kind, result.Detail)

		return models.TextMessage(textSubmitFailed)
	}

	return submittedMessage(result.ID)
}

func (m *Machine) withdrawQuittingRequest(ctx context.Context, session models.Session) models.Sendable {
	result := m.deps.Gateway.Submit(ctx, gateway.SubmitParams{
		Action: gateway.ActionCancelQuittingRequest,
		Fields: map[string]string{
			"staff_id": session.Fields.StaffID,
		},
	})
	if !result.OK {
		log.Errorf("dialogue.withdrawQuittingRequest: gateway.Submit: kind %s: %s", result.Kind, result.Detail)

		return models.TextMessage(textSubmitFailed)
	}

	return withdrawnMessage(result.ID)
}
