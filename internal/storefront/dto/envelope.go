package dto

import "encoding/json"

// Envelope is the wrapper every data API response arrives in.
// A failed call sets Success=false and explains itself in Message.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// NewSuccessEnvelope builds a success envelope around data.
func NewSuccessEnvelope(data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Success: true, Data: raw}, nil
}

// NewFailureEnvelope builds a failure envelope carrying message.
func NewFailureEnvelope(message string) Envelope {
	return Envelope{Success: false, Message: message}
}
