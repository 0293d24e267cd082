package intent

import (
	"strings"

	"github.com/hrline/taishokubot/internal/validate"
)

const (
	FreeText               Intent = "free_text"
	Cancel                 Intent = "cancel"
	AdminCommand           Intent = "admin_command"
	FlowStartQuit          Intent = "flow_start_quit"
	FlowStartCancelRequest Intent = "flow_start_cancel_request"
	Continuation           Intent = "continuation"
)

type Intent = string

// adminPrefixes require the trailing space: a bare "cancel" stays a cancel
// word while "cancel R12" is an admin command. The prefix check runs before
// flow triggers and session continuation on purpose, so a staff member mid
// dialogue can still issue admin commands.
var adminPrefixes = []string{"approve ", "reject ", "cancel "}

// Classify decides which handler owns the message. The priority order is
// fixed: cancel word (open session only), admin command prefix, flow start
// trigger, continuation of an open session, free text.
func Classify(text string, hasOpenSession bool) Intent {
	folded := validate.Fold(text)

	if hasOpenSession && validate.IsCancelWord(folded) {
		return Cancel
	}

	for _, prefix := range adminPrefixes {
		if strings.HasPrefix(folded, prefix) {
			return AdminCommand
		}
	}

	if validate.IsQuitTrigger(folded) {
		return FlowStartQuit
	}
	if validate.IsCancelRequestTrigger(folded) {
		return FlowStartCancelRequest
	}

	if hasOpenSession {
		return Continuation
	}

	return FreeText
}
