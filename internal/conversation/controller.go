// Package conversation drives the AI chat widget: an ordered transcript and a
// two-state controller that allows one outstanding request at a time.
package conversation

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RedaDC/Trade-SENS-AI/models"
)

const (
	// ConnectivityError replaces the reply when the chat request fails
	ConnectivityError = "I'm having trouble connecting. Try again later!"
	// MissingResponse replaces a reply without a response field
	MissingResponse = "Error connecting to AI."
)

// State of the controller
type State int

const (
	Idle State = iota
	AwaitingResponse
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingResponse:
		return "awaiting_response"
	default:
		return "unknown"
	}
}

// Options configure a Controller
type Options struct {
	Chat models.ChatClient
	// Symbol supplies the chat context at send time
	Symbol func() string
	// Greeting, when set, opens the transcript as an assistant message
	Greeting string
}

// Controller owns the transcript. Because a send is refused while a reply is
// outstanding, replies are appended in send order without request ids.
type Controller struct {
	chat   models.ChatClient
	symbol func() string
	logger zerolog.Logger

	mu         sync.Mutex
	state      State
	transcript []Message
}

// New creates an idle controller
func New(opts Options) *Controller {
	c := &Controller{
		chat:   opts.Chat,
		symbol: opts.Symbol,
		logger: log.With().Str("component", "conversation").Logger(),
	}
	if c.symbol == nil {
		c.symbol = func() string { return "" }
	}
	if opts.Greeting != "" {
		c.transcript = append(c.transcript, TextMessage{From: RoleAssistant, Text: opts.Greeting})
	}
	return c
}

// Send appends the user's message and starts the chat request. It returns
// false, doing nothing, for blank text or while a reply is outstanding.
// The returned channel yields the assistant message once it is appended.
func (c *Controller) Send(ctx context.Context, text string) (<-chan Message, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}

	c.mu.Lock()
	if c.state == AwaitingResponse {
		c.mu.Unlock()
		c.logger.Debug().Msg("Send refused while awaiting response")
		return nil, false
	}
	c.transcript = append(c.transcript, TextMessage{From: RoleUser, Text: text})
	c.state = AwaitingResponse
	c.mu.Unlock()

	chatCtx := models.ChatContext{Symbol: c.symbol()}
	reply := make(chan Message, 1)
	go func() {
		msg := c.request(ctx, text, chatCtx)

		c.mu.Lock()
		c.transcript = append(c.transcript, msg)
		c.state = Idle
		c.mu.Unlock()

		reply <- msg
		close(reply)
	}()
	return reply, true
}

func (c *Controller) request(ctx context.Context, text string, chatCtx models.ChatContext) Message {
	if c.chat == nil {
		return TextMessage{From: RoleAssistant, Text: ConnectivityError}
	}
	resp, err := c.chat.Chat(ctx, text, chatCtx)
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", chatCtx.Symbol).Msg("Chat request failed")
		return TextMessage{From: RoleAssistant, Text: ConnectivityError}
	}
	return replyMessage(resp)
}

// replyMessage maps a chat response onto a transcript message
func replyMessage(resp models.ChatReply) Message {
	switch {
	case !resp.Present:
		return TextMessage{From: RoleAssistant, Text: MissingResponse}
	case resp.Structured != nil:
		// an empty data object is still an analysis card
		return AnalysisMessage{Text: resp.Structured.Message, Analysis: resp.Structured.Data}
	default:
		return TextMessage{From: RoleAssistant, Text: resp.Text}
	}
}

// State returns the current controller state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transcript returns a copy of the messages in order
func (c *Controller) Transcript() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.transcript))
	copy(out, c.transcript)
	return out
}
