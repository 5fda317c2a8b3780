package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"livepoll/internal/domain"
)

// MemoryStore keeps all polls in process memory. Each poll carries its own
// mutex, so the check-then-act of a vote is serialized per poll while
// unrelated polls proceed in parallel.
type MemoryStore struct {
	mu    sync.RWMutex
	polls map[string]*pollEntry
}

type pollEntry struct {
	mu   sync.Mutex
	poll *domain.Poll
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{polls: make(map[string]*pollEntry)}
}

func (s *MemoryStore) Create(ctx context.Context, question string, options []string) (*domain.Snapshot, error) {
	poll, err := domain.NewPoll(uuid.New().String(), question, options)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.polls[poll.ID] = &pollEntry{poll: poll}
	s.mu.Unlock()

	return poll.Snapshot(), nil
}

func (s *MemoryStore) Get(ctx context.Context, pollID string) (*domain.Snapshot, error) {
	entry, err := s.entry(pollID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.poll.Snapshot(), nil
}

func (s *MemoryStore) ApplyVote(ctx context.Context, pollID string, optionIndex int, voterID string) (*domain.Snapshot, error) {
	entry, err := s.entry(pollID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := entry.poll.ApplyVote(optionIndex, voterID); err != nil {
		return nil, err
	}
	return entry.poll.Snapshot(), nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) entry(pollID string) (*pollEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.polls[pollID]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	return entry, nil
}
