package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ent0n29/chatassistant/internal/chat"
	"github.com/ent0n29/chatassistant/internal/session"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeUserMessage     MessageType = "user_message"
	TypeClientControl   MessageType = "client_control"
	TypeSettingsUpdate  MessageType = "settings_update"
	TypeAssistantReply  MessageType = "assistant_reply"
	TypeSessionSnapshot MessageType = "session_snapshot"
	TypeSystemEvent     MessageType = "system_event"
	TypeErrorEvent      MessageType = "error_event"
)

const (
	ActionReset    = "reset"
	ActionSnapshot = "snapshot"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type UserMessage struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
}

type ClientControl struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Action    string      `json:"action"`
}

type SettingsUpdate struct {
	Type         MessageType `json:"type"`
	SessionID    string      `json:"session_id"`
	Model        string      `json:"model"`
	MemoryWindow int         `json:"memory_window"`
}

type AssistantReply struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Turn      chat.Turn   `json:"turn"`
	ReplyHTML string      `json:"reply_html"`
}

type SessionSnapshot struct {
	Type    MessageType  `json:"type"`
	Session session.View `json:"session"`
}

type SystemEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeUserMessage:
		var msg UserMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		switch msg.Action {
		case ActionReset, ActionSnapshot:
		default:
			return nil, fmt.Errorf("invalid client_control action %q", msg.Action)
		}
		return msg, nil
	case TypeSettingsUpdate:
		var msg SettingsUpdate
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.Model == "" || msg.MemoryWindow == 0 {
			return nil, errors.New("invalid settings_update")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}

// TypeOf reports the message type of any protocol value.
func TypeOf(v any) (MessageType, bool) {
	switch m := v.(type) {
	case UserMessage:
		return m.Type, true
	case ClientControl:
		return m.Type, true
	case SettingsUpdate:
		return m.Type, true
	case AssistantReply:
		return m.Type, true
	case SessionSnapshot:
		return m.Type, true
	case SystemEvent:
		return m.Type, true
	case ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
