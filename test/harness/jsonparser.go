package harness

import (
	"encoding/json"
	"strings"
)

// MessageType represents the type of JSON message emitted by itch-tip
type MessageType string

const (
	TypeRefChanged   MessageType = "ref-changed"
	TypeShutdown     MessageType = "shutdown"
	TypeRearmed      MessageType = "rearmed"
	TypeStressResult MessageType = "stress-result"
	TypeInfo         MessageType = "info"
	TypeLog          MessageType = "log"
)

// Message represents a parsed JSON message from itch-tip output
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// RefChangedPayload contains the count after an AddRef or Release
type RefChangedPayload struct {
	Op    string `json:"op"`
	Count int64  `json:"count"`
}

// ShutdownPayload contains the index of the step that fired the gate
type ShutdownPayload struct {
	Step int `json:"step"`
}

// StressResultPayload summarizes a stress run
type StressResultPayload struct {
	Workers    int   `json:"workers"`
	Rounds     int   `json:"rounds"`
	FinalCount int64 `json:"finalCount"`
	Teardowns  int   `json:"teardowns"`
}

// InfoPayload contains the module lifecycle state
type InfoPayload struct {
	ModuleHandle      string `json:"moduleHandle"`
	RefCount          int64  `json:"refCount"`
	Unloaded          bool   `json:"unloaded"`
	ShutdownFired     bool   `json:"shutdownFired"`
	CrashHandlerReady bool   `json:"crashHandlerReady"`
}

// LogPayload contains log messages
type LogPayload struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// ParseMessage parses a single line of JSON output
func ParseMessage(line string) (Message, bool) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "{") {
		return Message{}, false
	}

	var msg Message
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		return Message{}, false
	}

	return msg, true
}

// GetRefChangedPayload extracts the payload for ref-changed messages
func (m Message) GetRefChangedPayload() (*RefChangedPayload, bool) {
	if m.Type != TypeRefChanged {
		return nil, false
	}
	var p RefChangedPayload
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		return nil, false
	}
	return &p, true
}

// GetShutdownPayload extracts the payload for shutdown messages
func (m Message) GetShutdownPayload() (*ShutdownPayload, bool) {
	if m.Type != TypeShutdown {
		return nil, false
	}
	var p ShutdownPayload
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		return nil, false
	}
	return &p, true
}

// GetStressResultPayload extracts the payload for stress-result messages
func (m Message) GetStressResultPayload() (*StressResultPayload, bool) {
	if m.Type != TypeStressResult {
		return nil, false
	}
	var p StressResultPayload
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		return nil, false
	}
	return &p, true
}

// GetInfoPayload extracts the payload for info messages
func (m Message) GetInfoPayload() (*InfoPayload, bool) {
	if m.Type != TypeInfo {
		return nil, false
	}
	var p InfoPayload
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		return nil, false
	}
	return &p, true
}

// GetLogPayload extracts the payload for log messages
func (m Message) GetLogPayload() (*LogPayload, bool) {
	if m.Type != TypeLog {
		return nil, false
	}
	var p LogPayload
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		return nil, false
	}
	return &p, true
}

// HasMessageType checks if the result contains a message of the given type
func (r *Result) HasMessageType(t MessageType) bool {
	for _, msg := range r.Messages {
		if msg.Type == t {
			return true
		}
	}
	return false
}

// GetFirstMessageOfType returns the first message of the given type
func (r *Result) GetFirstMessageOfType(t MessageType) *Message {
	for _, msg := range r.Messages {
		if msg.Type == t {
			return &msg
		}
	}
	return nil
}

// GetAllMessagesOfType returns all messages of the given type
func (r *Result) GetAllMessagesOfType(t MessageType) []Message {
	var result []Message
	for _, msg := range r.Messages {
		if msg.Type == t {
			result = append(result, msg)
		}
	}
	return result
}
