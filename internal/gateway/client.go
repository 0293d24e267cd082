package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

const (
	ActionCreateQuittingRequest  = "createQuittingRequest"
	ActionCancelQuittingRequest  = "cancelQuittingRequest"
	ActionApproveQuittingRequest = "approveQuittingRequest"
	ActionRejectQuittingRequest  = "rejectQuittingRequest"
)

const (
	KindConfigurationMissing Kind = "configuration_missing"
	KindTransportFailure     Kind = "transport_failure"
	KindMalformedResponse    Kind = "malformed_response"
	KindRejected             Kind = "rejected"
)

type Kind = string

const (
	defaultTimeout = 15 * time.Second

	// How much of an unparseable body is kept for diagnostics.
	maxRawDetailLength = 300
)

type Config struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
}

type Dependencies struct {
	Client *resty.Client `validate:"required"`
}

func (d *Dependencies) Validate() error {
	return validator.New().Struct(d)
}

// Client wraps the external workflow endpoint. One attempt per call, no
// retry: the caller clears the user's session on every outcome, so a retry
// here would risk duplicate submissions.
type Client struct {
	config Config
	deps   Dependencies
}

func NewClient(config Config, deps Dependencies) (*Client, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}

	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	deps.Client.SetTimeout(config.Timeout)

	return &Client{
		config: config,
		deps:   deps,
	}, nil
}

type SubmitParams struct {
	Action string
	Fields map[string]string
}

// Result is never an error value: every failure mode degrades to a Kind
// plus a Detail string for the operator, while the user only ever sees a
// generic failure message.
type Result struct {
	OK     bool
	ID     string
	Kind   Kind
	Detail string
}

type response struct {
	OK    bool   `json:"ok"`
	ID    string `json:"id"`
	Error string `json:"error"`
}

func (c *Client) Submit(ctx context.Context, params SubmitParams) Result {
	if c.config.Endpoint == "" {
		return Result{
			Kind:   KindConfigurationMissing,
			Detail: "workflow endpoint is not configured",
		}
	}

	payload := map[string]any{
		"action": params.Action,
	}
	for name, value := range params.Fields {
		payload[name] = value
	}

	request := c.deps.Client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload)

	if c.config.Token != "" {
		request.SetHeader("X-Workflow-Token", c.config.Token)
	}

	resp, err := request.Post(c.config.Endpoint)
	if err != nil {
		log.Errorf("gateway.Submit: request.Post: %v", err)

		return Result{
			Kind:   KindTransportFailure,
			Detail: err.Error(),
		}
	}

	var parsed response

	if err = json.Unmarshal(resp.Body(), &parsed); err != nil {
		log.Errorf("gateway.Submit: json.Unmarshal: %v: status %d", err, resp.StatusCode())

		return Result{
			Kind:   KindMalformedResponse,
			Detail: truncate(string(resp.Body()), maxRawDetailLength),
		}
	}

	if !parsed.OK {
		return Result{
			Kind:   KindRejected,
			Detail: parsed.Error,
		}
	}

	return Result{
		OK: true,
		ID: parsed.ID,
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
