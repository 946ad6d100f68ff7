// # internal/engine/background/task.go
package background

import (
	"time"

	"github.com/google/uuid"
	"go.lsp.dev/uri"

	"apexls/internal/data/queue"
	"apexls/internal/engine/registry"
	"apexls/internal/engine/resolver"
	"apexls/internal/symbols"
)

// TaskType names the unit of background work.
type TaskType string

const (
	TaskSymbolIndexing     TaskType = "symbol-indexing"
	TaskCommentAssociation TaskType = "comment-association"
	TaskDeferredProcess    TaskType = "deferred-reference-process"
	TaskDeferredRetry      TaskType = "deferred-reference-retry"
)

// TaskState is the lifecycle phase of a task record.
type TaskState string

const (
	StatePending   TaskState = "PENDING"
	StateRunning   TaskState = "RUNNING"
	StateCompleted TaskState = "COMPLETED"
	StateFailed    TaskState = "FAILED"
)

// Task is one queued unit of work. Exactly one payload field is set per
// type: Table for indexing and comment association, Deferred for the two
// deferred-reference types.
type Task struct {
	ID      string
	Type    TaskType
	Tier    queue.Tier
	URI     uri.URI
	Version int32

	Table    *symbols.Table
	Deferred resolver.Deferred
	Ctx      *registry.ResolveContext

	EnqueuedAt time.Time
}

// Record is the externally visible status of a task, retained in a bounded
// history after the task finishes.
type Record struct {
	ID         string
	Type       TaskType
	Tier       queue.Tier
	URI        uri.URI
	State      TaskState
	Error      string
	EnqueuedAt time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}

// Terminal reports whether the record will not change again.
func (r Record) Terminal() bool {
	return r.State == StateCompleted || r.State == StateFailed
}

func newTaskID() string {
	return uuid.NewString()
}

// SyncIDPrefix marks task ids issued by the synchronous fallback path of
// an uninitialized manager. Their records are terminal from the start.
const SyncIDPrefix = "sync-"
