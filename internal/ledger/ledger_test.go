package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
)

type memStore struct {
	mu        sync.Mutex
	sent      map[int]int
	atomicErr error

	// readBarrier, when set, makes every GetSent wait until all expected readers have read.
	readBarrier *sync.WaitGroup
	atomicCalls int
}

func newMemStore() *memStore {
	return &memStore{sent: make(map[int]int)}
}

func (s *memStore) IncrementSent(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.atomicCalls++
	if s.atomicErr != nil {
		return s.atomicErr
	}
	s.sent[id]++
	return nil
}

func (s *memStore) GetSent(_ context.Context, id int) (int, error) {
	s.mu.Lock()
	v := s.sent[id]
	s.mu.Unlock()
	if s.readBarrier != nil {
		s.readBarrier.Done()
		s.readBarrier.Wait()
	}
	return v, nil
}

func (s *memStore) SetSent(_ context.Context, id, sent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[id] = sent
	return nil
}

func incrementConcurrently(t *testing.T, l Ledger, n int) {
	t.Helper()
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Increment(context.Background(), 7))
		}()
	}
	wg.Wait()
}

func TestAtomicLedgerNeverLosesUpdates(t *testing.T) {
	store := newMemStore()
	incrementConcurrently(t, &AtomicLedger{Store: store}, 50)
	assert.Equal(t, 50, store.sent[7])
}

func TestReadModifyWriteLosesInterleavedUpdate(t *testing.T) {
	store := newMemStore()
	store.sent[7] = 4
	var barrier sync.WaitGroup
	barrier.Add(2)
	store.readBarrier = &barrier

	// Both increments read 4 before either writes, so the counter ends at 5, not 6.
	incrementConcurrently(t, &ReadModifyWriteLedger{Store: store}, 2)
	assert.Equal(t, 5, store.sent[7])
}

func TestReadModifyWriteSequential(t *testing.T) {
	store := newMemStore()
	l := &ReadModifyWriteLedger{Store: store}
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Increment(context.Background(), 1))
	}
	assert.Equal(t, 3, store.sent[1])
}

func TestFallbackUsesAtomicPath(t *testing.T) {
	store := newMemStore()
	require.NoError(t, NewFallback(store, nil).Increment(context.Background(), 2))
	assert.Equal(t, 1, store.sent[2])
	assert.Equal(t, 1, store.atomicCalls)
}

func TestFallbackDegradesWhenAtomicUnavailable(t *testing.T) {
	store := newMemStore()
	store.sent[2] = 9
	store.atomicErr = appErrors.ErrAtomicUnavailable

	require.NoError(t, NewFallback(store, nil).Increment(context.Background(), 2))
	assert.Equal(t, 10, store.sent[2])
}

func TestFallbackReturnsOtherErrors(t *testing.T) {
	store := newMemStore()
	boom := errors.New("connection reset")
	store.atomicErr = boom

	err := NewFallback(store, nil).Increment(context.Background(), 2)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.sent[2])
}
