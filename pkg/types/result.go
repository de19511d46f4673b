package types

import (
	"crypto/sha1"
	"encoding/hex"
)

// Result records one command applied to one input item.
type Result struct {
	// ID is SHA-1(command + '\0' + options + '\0' + item_id).
	ID      string `json:"id"`
	ItemID  ItemID `json:"item_id"`
	Command string `json:"command"` // e.g., "str index-of"
	Options string `json:"options"` // canonical JSON of the command options

	// JobID is set when the result came from a job run.
	JobID  string `json:"job_id,omitempty"`
	Source string `json:"source"` // provenance path of the item
	Output Value  `json:"output"`
}

// ComputeResultID computes a content-based unique ID, so rerunning the same
// command with the same options over the same item yields the same ID.
// Format: SHA-1(command + '\0' + options + '\0' + item_id)
func ComputeResultID(command, options string, itemID ItemID) string {
	h := sha1.New()

	h.Write([]byte(command))
	h.Write([]byte{0}) // null byte separator

	h.Write([]byte(options))
	h.Write([]byte{0})

	h.Write(itemID[:])

	return hex.EncodeToString(h.Sum(nil))
}
