package chat

import "fmt"

// State is the chat panel's lifecycle state. Exactly one holds at a time,
// so "lead form open while a reply is pending" cannot be expressed.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateAwaitingReply
	StateLeadPrompt
	StateLeadCaptured
)

var stateNames = map[State]string{
	StateClosed:        "closed",
	StateOpen:          "open",
	StateAwaitingReply: "awaiting_reply",
	StateLeadPrompt:    "lead_prompt",
	StateLeadCaptured:  "lead_captured",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText renders the state by name in JSON payloads
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

