package domain

import "encoding/json"

// Ack statuses sent from the ingress relay to generator connections.
const (
	AckSuccess   = "success"
	AckError     = "error"
	AckConnected = "connected"
	AckStatus    = "status"
	AckShutdown  = "shutdown"
)

// Ack is a frame sent back on a generator connection. Success and error acks
// answer a reading; the other statuses are server-initiated pushes.
type Ack struct {
	Status           string `json:"status"`
	Message          string `json:"message"`
	Kind             Kind   `json:"kind,omitempty"`
	ID               string `json:"id,omitempty"`
	ConnectedClients *int   `json:"connectedClients,omitempty"`
	Timestamp        string `json:"timestamp"`
}

// WebhookResponse is the enrichment relay's answer to POST /webhook.
type WebhookResponse struct {
	Success     bool             `json:"success"`
	Message     string           `json:"message"`
	Kind        Kind             `json:"kind,omitempty"`
	Data        *EnrichedReading `json:"data,omitempty"`
	APIResponse json.RawMessage  `json:"apiResponse,omitempty"`
}

// InsertResponse is the storage service's answer to POST /api/temperature.
type InsertResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Kind    Kind          `json:"kind,omitempty"`
	Data    *InsertResult `json:"data,omitempty"`
}

// ErrorResponse is the body of every non-2xx HTTP response in the pipeline.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Kind    Kind   `json:"kind"`
}
