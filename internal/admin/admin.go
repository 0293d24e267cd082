package admin

import (
	"errors"
	"strings"

	set "github.com/deckarep/golang-set/v2"

	"github.com/hrline/taishokubot/internal/gateway"
	"github.com/hrline/taishokubot/internal/validate"
)

const (
	VerbApprove = "approve"
	VerbReject  = "reject"
	VerbCancel  = "cancel"
)

const (
	MessageDenied = "You are not authorized to use administrative commands.\n管理コマンドを使用する権限がありません。"

	MessageUsage = "Usage: approve <request-id> [comment] | reject <request-id> [comment] | cancel <request-id> [comment]\n使い方: approve <申請番号> [コメント] など"
)

var ErrMalformed = errors.New("malformed admin command")

var verbActions = map[string]string{
	VerbApprove: gateway.ActionApproveQuittingRequest,
	VerbReject:  gateway.ActionRejectQuittingRequest,
	VerbCancel:  gateway.ActionCancelQuittingRequest,
}

// Gate is the allow-list of sender ids permitted to issue admin commands.
// An empty list authorizes nobody: fail closed.
type Gate struct {
	allowed set.Set[string]
}

func NewGate(userIDs []string) *Gate {
	allowed := set.NewSet[string]()

	for _, id := range userIDs {
		if id = strings.TrimSpace(id); id != "" {
			allowed.Add(id)
		}
	}

	return &Gate{allowed: allowed}
}

func (g *Gate) IsAuthorized(senderID string) bool {
	if senderID == "" {
		return false
	}
	return g.allowed.ContainsOne(senderID)
}

// Command is parsed from text and never stored.
type Command struct {
	Verb      string
	RequestID string
	Comment   string
}

// ParseCommand splits "<verb> <request-id> [comment...]". The verb has
// already been recognized by the intent classifier; a missing request id is
// the malformed case that earns the usage hint.
func ParseCommand(text string) (Command, error) {
	fields := strings.Fields(validate.Normalize(text))

	if len(fields) < 2 {
		return Command{}, ErrMalformed
	}

	verb := strings.ToLower(fields[0])
	if _, ok := verbActions[verb]; !ok {
		return Command{}, ErrMalformed
	}

	return Command{
		Verb:      verb,
		RequestID: fields[1],
		Comment:   strings.Join(fields[2:], " "),
	}, nil
}

func (c Command) Action() string {
	return verbActions[c.Verb]
}
