package models

import "fmt"

// OpType is the kind of mutation recorded in the pending queue.
type OpType string

const (
	OpInsert OpType = "INSERT"
	OpUpdate OpType = "UPDATE"
	OpDelete OpType = "DELETE"
)

// ParseOpType validates a stored operation name.
func ParseOpType(s string) (OpType, error) {
	switch op := OpType(s); op {
	case OpInsert, OpUpdate, OpDelete:
		return op, nil
	}
	return "", fmt.Errorf("unknown operation %q", s)
}

// PendingOperation is one queued mutation awaiting replay against the
// backend. Payload holds the full snapshot for inserts, the id plus changed
// columns for updates and just the id for deletes.
type PendingOperation struct {
	Seq       int64
	Kind      Kind
	Op        OpType
	Payload   Fields
	OwnerID   string
	CreatedAt string
}

// RecordID is the id of the record the operation targets.
func (p PendingOperation) RecordID() string {
	return p.Payload.String(ColID)
}
