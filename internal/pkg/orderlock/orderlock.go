// Package orderlock serializes dispatch and status-ingestion work per order.
// Operations on different orders run concurrently; operations on the same
// order queue behind one mutex, which prevents a reassignment racing an
// in-flight status update for the same delivery.
package orderlock

import (
	"sync"

	"dispatch/internal/core/domain/model/kernel"
)

// KeyedMutex provides one mutex per order identifier. Mutexes are created
// lazily on first use and kept for the life of the process; the set of active
// orders is small enough that entries are not reclaimed.
type KeyedMutex struct {
	locks sync.Map // kernel UUID string -> *sync.Mutex
}

// NewKeyedMutex creates an empty per-order lock table.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

// Lock acquires the mutex for the given order, blocking until it is free,
// and returns the function that releases it.
//
// Example:
//
//	unlock := locks.Lock(orderID)
//	defer unlock()
func (m *KeyedMutex) Lock(orderID kernel.UUID) func() {
	v, _ := m.locks.LoadOrStore(orderID.String(), &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
