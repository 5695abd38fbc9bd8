package domain

import "time"

// ============================================================
// Session — conversation lifecycle and append-only logs
// ============================================================

// SessionStatus is the lifecycle state of a conversation.
// The only transition is active → ended, and ended is terminal.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

// Role identifies who wrote a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation. Immutable once appended.
// Sentiment is the classifier's score for user turns; assistant turns
// leave it zero.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Sentiment float64   `json:"sentiment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Resolution is a permanent audit record of an applied remedy.
// Entries are never mutated or deleted once written.
type Resolution struct {
	ID        string       `json:"id"`
	Type      SolutionType `json:"type"`
	OrderID   string       `json:"order_id"`
	Amount    float64      `json:"amount"`
	Timestamp time.Time    `json:"timestamp"`
	Success   bool         `json:"success"`
}

// Session is one customer conversation. It owns the append-only message
// and resolution logs the decision engines read and write.
//
// Escalated is monotonic: once true it never resets. Mutation on the
// same session must be serialized by the caller (see session.Manager);
// Session itself only enforces the lifecycle invariants.
type Session struct {
	ID             string         `json:"id"`
	CustomerID     string         `json:"customer_id"`
	Customer       CustomerInfo   `json:"customer"`
	OrderIDs       []string       `json:"order_ids"`
	Orders         []OrderDetails `json:"orders"`
	Messages       []Message      `json:"messages"`
	Status         SessionStatus  `json:"status"`
	Escalated      bool           `json:"escalated"`
	Resolutions    []Resolution   `json:"resolutions"`
	CreatedAt      time.Time      `json:"created_at"`
	LastActivityAt time.Time      `json:"last_activity_at"`
}

// Ended reports whether the session is terminal.
func (s *Session) Ended() bool {
	return s.Status == SessionEnded
}

// AppendMessage appends a message and bumps LastActivityAt.
// Fails on ended sessions.
func (s *Session) AppendMessage(role Role, content string, at time.Time) error {
	if s.Ended() {
		return &ErrSessionEnded{SessionID: s.ID}
	}
	s.Messages = append(s.Messages, Message{Role: role, Content: content, Timestamp: at})
	s.LastActivityAt = at
	return nil
}

// AppendUserMessage appends a user turn together with its classified
// sentiment. Fails on ended sessions.
func (s *Session) AppendUserMessage(content string, sentiment float64, at time.Time) error {
	if s.Ended() {
		return &ErrSessionEnded{SessionID: s.ID}
	}
	s.Messages = append(s.Messages, Message{Role: RoleUser, Content: content, Sentiment: sentiment, Timestamp: at})
	s.LastActivityAt = at
	return nil
}

// AppendResolution appends a resolution record. Fails on ended sessions.
func (s *Session) AppendResolution(r Resolution) error {
	if s.Ended() {
		return &ErrSessionEnded{SessionID: s.ID}
	}
	s.Resolutions = append(s.Resolutions, r)
	return nil
}

// Escalate flips the escalated flag. Idempotent; no effect on ended sessions.
func (s *Session) Escalate() error {
	if s.Ended() {
		return &ErrSessionEnded{SessionID: s.ID}
	}
	s.Escalated = true
	return nil
}

// End moves the session to its terminal state. Idempotent.
func (s *Session) End() {
	s.Status = SessionEnded
}

// UserMessageCount counts the user-authored messages.
func (s *Session) UserMessageCount() int {
	n := 0
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

// OrderByID returns the session order with the given id, or nil.
func (s *Session) OrderByID(orderID string) *OrderDetails {
	for i := range s.Orders {
		if s.Orders[i].ID == orderID {
			return &s.Orders[i]
		}
	}
	return nil
}

// MostRecentOrder returns the latest-ordered order in the session, or nil.
func (s *Session) MostRecentOrder() *OrderDetails {
	var latest *OrderDetails
	for i := range s.Orders {
		if latest == nil || s.Orders[i].OrderedAt.After(latest.OrderedAt) {
			latest = &s.Orders[i]
		}
	}
	return latest
}
