// Package guard keeps one in-flight run per named operation. A second caller
// gets ErrBusy instead of waiting, so the client can keep its button disabled.
package guard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var ErrBusy = errors.New("operation already in progress")

type Guard interface {
	Acquire(ctx context.Context, name string) (release func(), err error)
	Active() []string
}

type Local struct {
	mu   sync.Mutex
	held map[string]time.Time
}

func NewLocal() *Local {
	return &Local{held: make(map[string]time.Time)}
}

func (l *Local) Acquire(_ context.Context, name string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[name]; busy {
		return nil, fmt.Errorf("%w: %s", ErrBusy, name)
	}
	l.held[name] = time.Now()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, name)
			l.mu.Unlock()
		})
	}, nil
}

// Active lists the operations currently running in this process.
func (l *Local) Active() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := make([]string, 0, len(l.held))
	for name := range l.held {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
