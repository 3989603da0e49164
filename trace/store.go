// Package trace persists the scheduler's activation history and serves
// it over HTTP. Recording is decoupled from the scheduler loop so a
// slow disk never stalls a dispatch.
package trace

import (
	"context"
	"time"
)

// Record is one persisted activation: the accounting tuple as it stood
// when the task left the core.
type Record struct {
	ID         string    `json:"id"`
	BootID     string    `json:"boot_id"`
	Seq        uint64    `json:"seq"`
	Task       string    `json:"task"`
	Cost       uint64    `json:"cost"`
	Budget     uint64    `json:"budget"`
	Status     string    `json:"status"`
	Violations int       `json:"violations"`
	Cooldown   int       `json:"cooldown"`
	Exited     bool      `json:"exited"`
	At         time.Time `json:"at"`
}

// TaskSummary aggregates a task's history across one boot.
type TaskSummary struct {
	Task        string `json:"task"`
	Activations int    `json:"activations"`
	Overruns    int    `json:"overruns"`
	TotalCost   uint64 `json:"total_cost"`
	LastStatus  string `json:"last_status"`
}

// Store defines the persistence layer for activation records.
type Store interface {
	RecordActivation(ctx context.Context, rec *Record) error
	RecentActivations(ctx context.Context, limit int) ([]*Record, error)
	TaskSummaries(ctx context.Context, bootID string) ([]*TaskSummary, error)

	Migrate(ctx context.Context) error
	Close() error
}
