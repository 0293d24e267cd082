package models

import "time"

const (
	FlowQuit          Flow = "quit"
	FlowCancelRequest Flow = "cancel_request"
)

const (
	StepAwaitingStaffID      SessionStep = "awaiting_staff_id"
	StepAwaitingDate         SessionStep = "awaiting_date"
	StepAwaitingReason       SessionStep = "awaiting_reason"
	StepAwaitingComment      SessionStep = "awaiting_comment"
	StepAwaitingConfirmation SessionStep = "awaiting_confirmation"

	StepAwaitingCancelStaffID SessionStep = "awaiting_cancel_staff_id"
	StepAwaitingCancelConfirm SessionStep = "awaiting_cancel_confirm"
)

type Flow = string

type SessionStep = string

type UserID = string

// Session is one user's in-progress dialogue. It lives only in process
// memory: a restart drops in-flight dialogues, which is the accepted
// trade-off for this flow.
type Session struct {
	UserID    UserID        `json:"user_id"`
	Flow      Flow          `json:"flow"`
	Step      SessionStep   `json:"step"`
	Fields    SessionFields `json:"fields"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// SessionFields accumulates validated answers step by step. A field is set
// at most once per flow run and the whole struct is discarded together with
// the session.
type SessionFields struct {
	StaffID      string `json:"staff_id,omitempty"`
	QuittingDate string `json:"quitting_date,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Comment      string `json:"comment,omitempty"`
}
