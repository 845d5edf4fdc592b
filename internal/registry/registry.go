// Package registry persists instance records across application
// restarts, so a node started in a previous session can be re-adopted
// by probing rather than forgotten.
package registry

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for simple checks.
var (
	ErrNotFound      = errors.New("instance record not found")
	ErrAlreadyExists = errors.New("instance record already exists")
)

// Record is the durable description of one managed instance. Observed
// state is deliberately absent: it is re-derived by probing on startup,
// never trusted from disk. PID is recorded only for processes this
// application spawned; it is how ownership survives a restart.
type Record struct {
	ID         string    `json:"id"`
	Network    string    `json:"network"`
	DataDir    string    `json:"dataDir"`
	BinaryPath string    `json:"binaryPath"`
	Desired    string    `json:"desired"`
	PID        int       `json:"pid,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Store is the persistence contract. Both implementations are safe for
// concurrent use.
type Store interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	Update(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Record, error)
	Close() error
}
