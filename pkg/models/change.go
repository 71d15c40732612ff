package models

import "time"

type ChangeOp string

const (
	ChangeInsert ChangeOp = "insert"
	ChangeUpdate ChangeOp = "update"
	ChangeDelete ChangeOp = "delete"
)

// Change describes a committed write, emitted to change listeners.
type Change struct {
	Collection string    `json:"collection"`
	Op         ChangeOp  `json:"op"`
	ProjectID  string    `json:"project_id,omitempty"`
	RecordID   string    `json:"record_id,omitempty"`
	At         time.Time `json:"at"`
}
