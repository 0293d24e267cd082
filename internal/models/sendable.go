package models

// Sendable is one outbound reply message. Options render as quick-reply
// buttons when the platform supports them; the platform caps both the
// number of items and the label length, enforced by the reply client.
type Sendable struct {
	Text    string
	Options []Option
}

type Option struct {
	Label string
	Value string
}

func TextMessage(text string) Sendable {
	return Sendable{Text: text}
}
