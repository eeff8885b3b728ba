package memory

import (
	"context"
	"sync"

	"familytree/application/ports"
)

// Locker is a process-local ports.Locker
type Locker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

var _ ports.Locker = (*Locker)(nil)

func NewLocker() *Locker {
	return &Locker{slots: make(map[string]chan struct{})}
}

func (l *Locker) slot(resource string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[resource]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[resource] = ch
	}
	return ch
}

// Lock waits for resource or ctx cancellation
func (l *Locker) Lock(ctx context.Context, resource string) (func(context.Context) error, error) {
	ch := l.slot(resource)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { <-ch })
		return nil
	}, nil
}
