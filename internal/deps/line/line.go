package line

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"github.com/samber/lo"

	"github.com/hrline/taishokubot/internal/models"
)

const defaultEndpoint = "https://api.line.me/v2/bot/message/reply"

// Platform limits on reply payloads.
const (
	maxTextLength        = 5000
	maxOptionCount       = 13
	maxOptionLabelLength = 20
)

type Config struct {
	Token    string `validate:"required"`
	Endpoint string
}

type Dependencies struct {
	Client *resty.Client `validate:"required"`
}

func (d *Dependencies) Validate() error {
	return validator.New().Struct(d)
}

// Client delivers replies through the platform reply endpoint. Each reply
// token is usable exactly once; a failed reply is lost, there is no
// secondary channel to the user.
type Client struct {
	config Config
	deps   Dependencies
}

func NewClient(config Config, deps Dependencies) (*Client, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if config.Endpoint == "" {
		config.Endpoint = defaultEndpoint
	}

	return &Client{
		config: config,
		deps:   deps,
	}, nil
}

type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []textMessage `json:"messages"`
}

type textMessage struct {
	Type       string      `json:"type"`
	Text       string      `json:"text"`
	QuickReply *quickReply `json:"quickReply,omitempty"`
}

type quickReply struct {
	Items []quickReplyItem `json:"items"`
}

type quickReplyItem struct {
	Type   string           `json:"type"`
	Action quickReplyAction `json:"action"`
}

type quickReplyAction struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

func (c *Client) Reply(ctx context.Context, replyToken string, messages []models.Sendable) error {
	body := replyRequest{
		ReplyToken: replyToken,
		Messages: lo.Map(messages, func(message models.Sendable, _ int) textMessage {
			return buildTextMessage(message)
		}),
	}

	resp, err := c.deps.Client.R().
		SetContext(ctx).
		SetAuthToken(c.config.Token).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(c.config.Endpoint)
	if err != nil {
		return fmt.Errorf("c.deps.Client.R().Post: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("reply endpoint returned status %d: %s", resp.StatusCode(), truncateRunes(string(resp.Body()), 200))
	}

	return nil
}

func buildTextMessage(message models.Sendable) textMessage {
	built := textMessage{
		Type: "text",
		Text: truncateRunes(message.Text, maxTextLength),
	}

	options := message.Options
	if len(options) > maxOptionCount {
		options = options[:maxOptionCount]
	}

	if len(options) > 0 {
		built.QuickReply = &quickReply{
			Items: lo.Map(options, func(option models.Option, _ int) quickReplyItem {
				return quickReplyItem{
					Type: "action",
					Action: quickReplyAction{
						Type:  "message",
						Label: truncateRunes(option.Label, maxOptionLabelLength),
						Text:  option.Value,
					},
				}
			}),
		}
	}

	return built
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
