// Package health provides a registry of named dependency checks backing the
// readiness endpoint.
package health

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// Status represents the health of a single dependency.
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// Checker reports the health of one dependency.
type Checker func(ctx context.Context) Status

// Registry holds named checkers and runs them on demand.
type Registry struct {
	mu       sync.RWMutex
	checkers []Checker
}

// NewRegistry creates an empty registry. An empty registry is healthy.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a checker.
func (r *Registry) Register(check Checker) {
	r.mu.Lock()
	r.checkers = append(r.checkers, check)
	r.mu.Unlock()
}

// CheckAll runs every checker in registration order and reports whether all
// of them passed.
func (r *Registry) CheckAll(ctx context.Context) (healthy bool, statuses []Status) {
	r.mu.RLock()
	checkers := append([]Checker(nil), r.checkers...)
	r.mu.RUnlock()

	healthy = true
	statuses = make([]Status, len(checkers))
	for i, check := range checkers {
		statuses[i] = check(ctx)
		if !statuses[i].Healthy {
			healthy = false
		}
	}
	return healthy, statuses
}

// Ping adapts an error-returning probe such as (*sql.DB).PingContext.
func Ping(name string, probe func(context.Context) error) Checker {
	return func(ctx context.Context) Status {
		if err := probe(ctx); err != nil {
			return Status{Name: name, Healthy: false, Detail: err.Error()}
		}
		return Status{Name: name, Healthy: true}
	}
}

// Dir reports healthy when path exists and is a directory. A missing
// directory is healthy when optional is set, since the data and model
// stores both treat absence as empty.
func Dir(name, path string, optional bool) Checker {
	return func(context.Context) Status {
		info, err := os.Stat(path)
		switch {
		case err == nil && info.IsDir():
			return Status{Name: name, Healthy: true}
		case err == nil:
			return Status{Name: name, Healthy: false, Detail: fmt.Sprintf("%s is not a directory", path)}
		case os.IsNotExist(err) && optional:
			return Status{Name: name, Healthy: true, Detail: "missing, treated as empty"}
		default:
			return Status{Name: name, Healthy: false, Detail: err.Error()}
		}
	}
}
