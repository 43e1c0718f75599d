package domain

import "time"

// Lead is the contact information a visitor leaves mid-conversation
type Lead struct {
	Name       string    `json:"name"`
	Company    string    `json:"company,omitempty"`
	Email      string    `json:"email"`
	CapturedAt time.Time `json:"captured_at"`
}

// EventType identifies a session lifecycle event
type EventType string

const (
	EventMeetingRequest EventType = "meeting_request"
	EventSessionEnd     EventType = "session_end"
)

// AnonymousLead is reported as the lead name when a session ends without a lead
const AnonymousLead = "Anonymous"

// TimestampLayout is ISO-8601 with millisecond precision in UTC
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// LifecycleEvent is the payload posted to the session-log webhook
type LifecycleEvent struct {
	Type         EventType `json:"type"`
	LeadName     string    `json:"leadName"`
	LeadCompany  string    `json:"leadCompany"`
	LeadEmail    string    `json:"leadEmail"`
	SessionID    string    `json:"sessionId"`
	ChatLog      string    `json:"chatLog"`
	MessageCount int       `json:"messageCount"`
	Timestamp    string    `json:"timestamp"`
}

// NewLifecycleEvent builds an event from the transcript as it stands at emission time.
// A nil lead yields the anonymous form used for session_end.
func NewLifecycleEvent(eventType EventType, sessionID string, lead *Lead, messages []Message, at time.Time) LifecycleEvent {
	event := LifecycleEvent{
		Type:         eventType,
		LeadName:     AnonymousLead,
		SessionID:    sessionID,
		ChatLog:      RenderChatLog(messages),
		MessageCount: len(messages),
		Timestamp:    at.UTC().Format(TimestampLayout),
	}
	if lead != nil {
		event.LeadName = lead.Name
		event.LeadCompany = lead.Company
		event.LeadEmail = lead.Email
	}
	return event
}
