package conversation

import "github.com/RedaDC/Trade-SENS-AI/models"

// Role of a message author
type Role string

const (
	RoleUser      Role = "USER"
	RoleAssistant Role = "ASSISTANT"
)

// Kind discriminates the message variants
type Kind string

const (
	KindText     Kind = "TEXT"
	KindAnalysis Kind = "ANALYSIS"
)

// Message is either a TextMessage or an AnalysisMessage. The set is closed;
// consumers switch on the concrete type.
type Message interface {
	Role() Role
	Kind() Kind
	Content() string
	sealed()
}

// TextMessage is plain text from either side
type TextMessage struct {
	From Role
	Text string
}

func (m TextMessage) Role() Role      { return m.From }
func (m TextMessage) Kind() Kind      { return KindText }
func (m TextMessage) Content() string { return m.Text }
func (TextMessage) sealed()           {}

// AnalysisMessage is an assistant reply carrying a structured analysis
type AnalysisMessage struct {
	Text     string
	Analysis models.AnalysisPayload
}

func (m AnalysisMessage) Role() Role      { return RoleAssistant }
func (m AnalysisMessage) Kind() Kind      { return KindAnalysis }
func (m AnalysisMessage) Content() string { return m.Text }
func (AnalysisMessage) sealed()           {}
