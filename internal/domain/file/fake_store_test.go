package file

import (
	"context"
	"io"
	"sync"

	"kineticafs/internal/blobstore"
)

// memStore is an in-memory blob backend shared by every target.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	targets []blobstore.Target

	// putErr, when set, fails every Put after the body is consumed.
	putErr error
	// block makes Put wait for ctx cancellation after reading the body.
	block   bool
	started chan struct{}
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte), started: make(chan struct{}, 1)}
}

func (m *memStore) Open(_ context.Context, t blobstore.Target) (blobstore.Store, error) {
	m.mu.Lock()
	m.targets = append(m.targets, t)
	m.mu.Unlock()
	return m, nil
}

func (m *memStore) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if m.block {
		m.started <- struct{}{}
		<-ctx.Done()
		return ctx.Err()
	}
	if m.putErr != nil {
		return m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStore) object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	return b, ok
}
