package service

import (
	"context"
)

// RepairOp names the index operation a repair job retries.
type RepairOp string

const (
	RepairSync   RepairOp = "sync"
	RepairDelete RepairOp = "delete"
)

// RepairJob is a failed index write waiting to be retried.
type RepairJob struct {
	Op      RepairOp `json:"op"`
	ID      string   `json:"id"`
	Attempt int      `json:"attempt"`
}

// RepairQueue accepts failed index writes for later retry.
type RepairQueue interface {
	Enqueue(ctx context.Context, job RepairJob) error
}

type noopRepairQueue struct{}

func (noopRepairQueue) Enqueue(context.Context, RepairJob) error { return nil }
