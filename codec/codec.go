package codec

import (
	"encoding/json"
	"fmt"
)

// Message is a decoded wire payload. Inbound frames are deserialized into
// this form before dispatch; outbound messages are serialized from it.
type Message map[string]any

// Codec converts between wire frames and Messages.
type Codec interface {
	// Encode serializes a message to a text frame.
	Encode(msg Message) ([]byte, error)

	// Decode deserializes a text frame. Failures return *DecodeError.
	Decode(frame []byte) (Message, error)
}

// DecodeError reports a frame that could not be decoded.
type DecodeError struct {
	Frame []byte // Raw frame bytes that failed to decode
	Err   error  // Underlying cause
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode frame (%d bytes): %v", len(e.Frame), e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// JSON is the default codec: messages are JSON objects in text frames.
type JSON struct{}

// Encode serializes msg as JSON.
func (JSON) Encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return data, nil
}

// Decode parses a JSON text frame.
func (JSON) Decode(frame []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, &DecodeError{Frame: frame, Err: err}
	}
	return msg, nil
}
