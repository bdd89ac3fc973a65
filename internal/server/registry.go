package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/exportlens/exportlens/internal/frame"
	"github.com/exportlens/exportlens/internal/ingest"
)

// Dataset is one uploaded, normalized record set. The frame is immutable
// after registration; every request filters it into a fresh working view, so
// nothing mutable is shared between users.
type Dataset struct {
	ID        string
	CreatedAt time.Time
	Frame     *frame.Frame
	Warnings  []ingest.Warning
}

// Registry holds datasets in memory, keyed by UUID. Nothing survives process
// restart. When the cap is exceeded the oldest dataset is evicted.
type Registry struct {
	mu       sync.Mutex
	max      int
	datasets map[string]*Dataset
	order    []string // insertion order, oldest first
}

// NewRegistry creates a registry capped at max datasets.
func NewRegistry(max int) *Registry {
	if max <= 0 {
		max = 32
	}
	return &Registry{
		max:      max,
		datasets: make(map[string]*Dataset),
	}
}

// Add registers a normalized frame and returns the new dataset.
func (r *Registry) Add(f *frame.Frame, warnings []ingest.Warning) *Dataset {
	ds := &Dataset{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Frame:     f,
		Warnings:  warnings,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.datasets[ds.ID] = ds
	r.order = append(r.order, ds.ID)
	for len(r.order) > r.max {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.datasets, oldest)
	}
	return ds
}

// Get returns the dataset with the given id, or nil.
func (r *Registry) Get(id string) *Dataset {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.datasets[id]
}

// Delete removes the dataset with the given id. Reports whether it existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.datasets[id]; !ok {
		return false
	}
	delete(r.datasets, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of registered datasets.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.datasets)
}
