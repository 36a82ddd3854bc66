// Package queue is a thin façade over the Store's operation log: it
// assigns operation ids and queued_at timestamps so callers never
// construct a model.BridgeOperation by hand.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/hamh-bridge/internal/model"
)

// Store is the subset of store.Store the queue needs.
type Store interface {
	AddOperation(op model.BridgeOperation) error
}

// Queue enqueues bridge lifecycle operations onto a Store.
type Queue struct {
	store Store
}

// New returns a Queue backed by store.
func New(store Store) *Queue {
	return &Queue{store: store}
}

// Enqueue records a new Queued operation for bridgeID and returns it.
func (q *Queue) Enqueue(bridgeID string, opType model.OperationType) (*model.BridgeOperation, error) {
	op := model.BridgeOperation{
		OperationID: uuid.NewString(),
		BridgeID:    bridgeID,
		OpType:      opType,
		Status:      model.StatusQueued,
		QueuedAt:    time.Now(),
	}
	if err := q.store.AddOperation(op); err != nil {
		return nil, err
	}
	return &op, nil
}
