package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RedaDC/Trade-SENS-AI/models"
)

type fakeChat struct {
	mu      sync.Mutex
	release chan struct{}
	reply   models.ChatReply
	err     error
	calls   []models.ChatContext
}

func (f *fakeChat) Chat(ctx context.Context, message string, chatCtx models.ChatContext) (models.ChatReply, error) {
	f.mu.Lock()
	f.calls = append(f.calls, chatCtx)
	release := f.release
	f.mu.Unlock()
	if release != nil {
		<-release
	}
	return f.reply, f.err
}

func (f *fakeChat) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no reply")
		return nil
	}
}

func TestSendAppendsUserThenReply(t *testing.T) {
	chat := &fakeChat{reply: models.ChatReply{Present: true, Text: "Hello trader"}}
	c := New(Options{Chat: chat, Symbol: func() string { return "GOLD" }})

	ch, ok := c.Send(context.Background(), "A")
	require.True(t, ok)

	msg := receive(t, ch)
	assert.Equal(t, TextMessage{From: RoleAssistant, Text: "Hello trader"}, msg)
	assert.Equal(t, []Message{
		TextMessage{From: RoleUser, Text: "A"},
		TextMessage{From: RoleAssistant, Text: "Hello trader"},
	}, c.Transcript())
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, []models.ChatContext{{Symbol: "GOLD"}}, chat.calls)
}

func TestSendRefusedWhileAwaiting(t *testing.T) {
	chat := &fakeChat{release: make(chan struct{}), reply: models.ChatReply{Present: true, Text: "ok"}}
	c := New(Options{Chat: chat})

	ch, ok := c.Send(context.Background(), "A")
	require.True(t, ok)
	assert.Equal(t, AwaitingResponse, c.State())

	_, ok = c.Send(context.Background(), "B")
	assert.False(t, ok)
	assert.Equal(t, []Message{TextMessage{From: RoleUser, Text: "A"}}, c.Transcript())

	close(chat.release)
	receive(t, ch)

	assert.Len(t, c.Transcript(), 2)
	assert.Equal(t, 1, chat.callCount())
	assert.Equal(t, Idle, c.State())
}

func TestSendIgnoresBlankText(t *testing.T) {
	chat := &fakeChat{}
	c := New(Options{Chat: chat})

	_, ok := c.Send(context.Background(), "   ")
	assert.False(t, ok)
	assert.Empty(t, c.Transcript())
	assert.Zero(t, chat.callCount())
}

func TestReplyVariants(t *testing.T) {
	payload := models.NewAnalysisPayload([]byte(`{"symbol":"GOLD","recommendation":"BUY"}`))

	tests := []struct {
		name     string
		reply    models.ChatReply
		err      error
		expected Message
	}{
		{
			name:     "string reply",
			reply:    models.ChatReply{Present: true, Text: "hi"},
			expected: TextMessage{From: RoleAssistant, Text: "hi"},
		},
		{
			name: "structured reply with data",
			reply: models.ChatReply{Present: true, Structured: &models.StructuredReply{
				Message: "Here is the analysis", Type: "analysis", Data: payload,
			}},
			expected: AnalysisMessage{Text: "Here is the analysis", Analysis: payload},
		},
		{
			name: "structured reply without data",
			reply: models.ChatReply{Present: true, Structured: &models.StructuredReply{
				Message: "No card",
			}},
			expected: AnalysisMessage{Text: "No card"},
		},
		{
			name: "structured reply without message or data",
			reply: models.ChatReply{Present: true, Structured: &models.StructuredReply{
				Type: "analysis",
			}},
			expected: AnalysisMessage{},
		},
		{
			name:     "absent reply",
			reply:    models.ChatReply{},
			expected: TextMessage{From: RoleAssistant, Text: MissingResponse},
		},
		{
			name:     "transport error",
			err:      errors.New("connection refused"),
			expected: TextMessage{From: RoleAssistant, Text: ConnectivityError},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(Options{Chat: &fakeChat{reply: tt.reply, err: tt.err}})

			ch, ok := c.Send(context.Background(), "question")
			require.True(t, ok)

			assert.Equal(t, tt.expected, receive(t, ch))
			transcript := c.Transcript()
			require.Len(t, transcript, 2)
			assert.Equal(t, tt.expected, transcript[1])
			assert.Equal(t, Idle, c.State())
		})
	}
}

func TestGreetingOpensTranscript(t *testing.T) {
	c := New(Options{Greeting: "Welcome"})

	assert.Equal(t, []Message{TextMessage{From: RoleAssistant, Text: "Welcome"}}, c.Transcript())
}

func TestTranscriptIsACopy(t *testing.T) {
	c := New(Options{Greeting: "Welcome"})

	got := c.Transcript()
	got[0] = TextMessage{From: RoleUser, Text: "changed"}

	assert.Equal(t, "Welcome", c.Transcript()[0].Content())
}

func TestDecodedStructuredReplyWithoutFields(t *testing.T) {
	var reply models.ChatReply
	require.NoError(t, json.Unmarshal([]byte(`{"response":{"message":"","type":"analysis"}}`), &reply))

	c := New(Options{Chat: &fakeChat{reply: reply}})
	ch, ok := c.Send(context.Background(), "card please")
	require.True(t, ok)

	msg := receive(t, ch)
	assert.Equal(t, KindAnalysis, msg.Kind())
	assert.Equal(t, RoleAssistant, msg.Role())
	assert.Empty(t, msg.Content())
}
