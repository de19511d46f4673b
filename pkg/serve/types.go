package serve

import (
	"encoding/json"

	"github.com/praetorian-inc/locus/pkg/diag"
	"github.com/praetorian-inc/locus/pkg/types"
)

// Request types.
const (
	TypeReady    = "ready"
	TypeRun      = "run"
	TypeRunBatch = "run_batch"
	TypeClose    = "close"
)

// Request represents an incoming NDJSON request
type Request struct {
	Type    string          `json:"type"` // "run" | "run_batch" | "close"
	Payload json.RawMessage `json:"payload"`
}

// RunPayload is the payload for "run" requests
type RunPayload struct {
	Command string          `json:"command"`           // e.g., "str index-of"
	Options json.RawMessage `json:"options,omitempty"` // command options
	Source  string          `json:"source"`            // caller-chosen label
	Input   types.Value     `json:"input"`
}

// RunBatchPayload is the payload for "run_batch" requests
type RunBatchPayload struct {
	Command string          `json:"command"`
	Options json.RawMessage `json:"options,omitempty"`
	Source  string          `json:"source"`
	Inputs  []types.Value   `json:"inputs"`
}

// RunData is the data field for successful "run" responses
type RunData struct {
	Output types.Value `json:"output"`
}

// RunBatchData is the data field for successful "run_batch" responses
type RunBatchData struct {
	Outputs []types.Value `json:"outputs"`
}

// Response represents an outgoing NDJSON response
type Response struct {
	Success bool            `json:"success"`
	Type    string          `json:"type"` // "ready" | "run" | "run_batch" | "error"
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`

	// Diagnostic is set when the failure is a labeled diagnostic. Its span
	// is relative to the JSON text of the failing input.
	Diagnostic *diag.Error `json:"diagnostic,omitempty"`

	// Index is the failing input of a run_batch request.
	Index *int `json:"index,omitempty"`
}

// ReadyData is the data field for "ready" responses
type ReadyData struct {
	Version  string   `json:"version"`
	Commands []string `json:"commands"`
}
