package stream

import (
	"encoding/json"
	"fmt"
)

// MessageType tags a push message.
type MessageType string

const (
	TypeStatus MessageType = "status"
	TypePrice  MessageType = "price"
	TypeError  MessageType = "error"
)

// Payload is implemented by the data of each message kind.
type Payload interface {
	Type() MessageType
}

// StatusData reports connection state and, when set, that the trade conditions hold.
type StatusData struct {
	Connected     bool   `json:"connected"`
	ConditionsMet bool   `json:"conditionsMet,omitempty"`
	Message       string `json:"message,omitempty"`
}

// PriceData is one price/liquidity snapshot. Timestamp is in unix milliseconds.
type PriceData struct {
	Price     float64 `json:"price"`
	Liquidity float64 `json:"liquidity"`
	Timestamp int64   `json:"timestamp"`
}

// ErrorData reports a failed update.
type ErrorData struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

func (StatusData) Type() MessageType { return TypeStatus }
func (PriceData) Type() MessageType  { return TypePrice }
func (ErrorData) Type() MessageType  { return TypeError }

// Message is the wire envelope.
type Message struct {
	Type MessageType `json:"type"`
	Data Payload     `json:"data"`
}

// Encode wraps p in its envelope.
func Encode(p Payload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("nil payload")
	}
	return json.Marshal(Message{Type: p.Type(), Data: p})
}

// Decode parses an envelope into its concrete payload.
func Decode(data []byte) (Message, error) {
	var raw struct {
		Type MessageType     `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Message{}, fmt.Errorf("decode envelope: %w", err)
	}

	var payload Payload
	switch raw.Type {
	case TypeStatus:
		var p StatusData
		if err := json.Unmarshal(raw.Data, &p); err != nil {
			return Message{}, fmt.Errorf("decode status: %w", err)
		}
		payload = p
	case TypePrice:
		var p PriceData
		if err := json.Unmarshal(raw.Data, &p); err != nil {
			return Message{}, fmt.Errorf("decode price: %w", err)
		}
		payload = p
	case TypeError:
		var p ErrorData
		if err := json.Unmarshal(raw.Data, &p); err != nil {
			return Message{}, fmt.Errorf("decode error: %w", err)
		}
		payload = p
	default:
		return Message{}, fmt.Errorf("unknown message type %q", raw.Type)
	}
	return Message{Type: raw.Type, Data: payload}, nil
}
