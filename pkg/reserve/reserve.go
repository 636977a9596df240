// Package reserve provides an in-process device reservation pool so that at
// most one traversal drives a given device at a time.
package reserve

import (
	"fmt"
	"sync"
)

// Pool tracks which device IDs are currently reserved.
type Pool struct {
	mu   sync.Mutex
	held map[string]string // device ID -> run ID holding it
}

// NewPool creates an empty reservation pool.
func NewPool() *Pool {
	return &Pool{held: make(map[string]string)}
}

// Acquire reserves the device for the given run. It fails immediately when
// the device is already held; callers decide whether to wait and retry.
func (p *Pool) Acquire(deviceID, runID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if owner, ok := p.held[deviceID]; ok {
		return fmt.Errorf("device %s already reserved by run %s", deviceID, owner)
	}
	p.held[deviceID] = runID
	return nil
}

// Release frees the device. Releasing an unreserved device is a no-op;
// releasing on behalf of a different run is refused.
func (p *Pool) Release(deviceID, runID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	owner, ok := p.held[deviceID]
	if !ok {
		return nil
	}
	if owner != runID {
		return fmt.Errorf("device %s is reserved by run %s, not %s", deviceID, owner, runID)
	}
	delete(p.held, deviceID)
	return nil
}

// Holder reports which run currently holds the device, if any.
func (p *Pool) Holder(deviceID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	owner, ok := p.held[deviceID]
	return owner, ok
}
