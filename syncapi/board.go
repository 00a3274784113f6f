package syncapi

import (
	"sync"

	"github.com/mmdatafocus/fieldsales_backend/syncer"
)

const boardSize = 200

// Board keeps the outcomes of recent pool jobs for polling clients.
type Board struct {
	mu       sync.RWMutex
	order    []string
	outcomes map[string]syncer.Outcome
}

func NewBoard() *Board {
	return &Board{outcomes: make(map[string]syncer.Outcome)}
}

// Record is a syncer.Callback.
func (b *Board) Record(o syncer.Outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.outcomes[o.RunID]; !ok {
		b.order = append(b.order, o.RunID)
	}
	b.outcomes[o.RunID] = o
	for len(b.order) > boardSize {
		delete(b.outcomes, b.order[0])
		b.order = b.order[1:]
	}
}

func (b *Board) Get(runID string) (syncer.Outcome, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.outcomes[runID]
	return o, ok
}
