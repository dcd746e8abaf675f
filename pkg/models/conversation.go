package models

import "time"

// ChatRole identifies the author of a conversation turn.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// Turn is one entry in a session's rolling conversation window.
type Turn struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// AmbiguityKind enumerates the fixed set of ways a natural-language
// request can under-specify a structured query.
type AmbiguityKind string

const (
	AmbiguityTime      AmbiguityKind = "time_specification"
	AmbiguityGrouping  AmbiguityKind = "grouping_granularity"
	AmbiguityFilter    AmbiguityKind = "filter_criteria"
	AmbiguityMeasure   AmbiguityKind = "measure_selection"
	AmbiguityDimension AmbiguityKind = "dimension_selection"
)

// AmbiguityPriority is the fixed tie-break order. When assessment flags
// more than one ambiguity, only the earliest entry here is surfaced per
// clarification turn.
var AmbiguityPriority = []AmbiguityKind{
	AmbiguityTime,
	AmbiguityGrouping,
	AmbiguityFilter,
	AmbiguityMeasure,
	AmbiguityDimension,
}

// HighestPriority returns the first kind from the fixed order present in
// flags, or "" when flags is empty.
func HighestPriority(flags []AmbiguityKind) AmbiguityKind {
	set := make(map[AmbiguityKind]bool, len(flags))
	for _, f := range flags {
		set[f] = true
	}
	for _, kind := range AmbiguityPriority {
		if set[kind] {
			return kind
		}
	}
	return ""
}

// ConversationContext is the per-session clarification state. It is
// mutated by the resolver on every transition and cleared entirely on
// rejection. The store hands out one instance per session id; access is
// serialized by the store's per-session locking.
type ConversationContext struct {
	SessionID string `json:"sessionId"`

	// OriginalQuery is the user text that started the current
	// resolution cycle. Re-assessment after a clarification re-runs
	// against this text with the enriched ResolvedAspects.
	OriginalQuery string `json:"originalQuery,omitempty"`

	// ResolvedAspects accumulates clarification answers by ambiguity kind.
	ResolvedAspects map[AmbiguityKind]string `json:"resolvedAspects,omitempty"`

	// Turns is the bounded rolling window of prior turns, oldest first.
	Turns []Turn `json:"turns,omitempty"`

	// PendingAmbiguity is the single outstanding ambiguity awaiting a
	// user answer, or "" when none.
	PendingAmbiguity AmbiguityKind `json:"pendingAmbiguity,omitempty"`

	// AwaitingConfirmation is set after a confirmation message has been
	// issued and before the caller signals confirm or reject.
	AwaitingConfirmation bool `json:"awaitingConfirmation,omitempty"`

	// ProposedParameters is the interpretation shown to the user at
	// confirmation time. Only a confirmed interpretation proceeds to
	// construction.
	ProposedParameters *CubeQuery `json:"proposedParameters,omitempty"`
}

// NewConversationContext creates an empty context for a session.
func NewConversationContext(sessionID string) *ConversationContext {
	return &ConversationContext{
		SessionID:       sessionID,
		ResolvedAspects: make(map[AmbiguityKind]string),
	}
}

// Reset clears all state while preserving the session key, so the
// session can continue at assessment afterward.
func (c *ConversationContext) Reset() {
	c.OriginalQuery = ""
	c.ResolvedAspects = make(map[AmbiguityKind]string)
	c.Turns = nil
	c.PendingAmbiguity = ""
	c.AwaitingConfirmation = false
	c.ProposedParameters = nil
}

// AppendTurn adds a turn, evicting the oldest entries beyond maxTurns.
func (c *ConversationContext) AppendTurn(role ChatRole, content string, maxTurns int) {
	c.Turns = append(c.Turns, Turn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	if maxTurns > 0 && len(c.Turns) > maxTurns {
		c.Turns = c.Turns[len(c.Turns)-maxTurns:]
	}
}
