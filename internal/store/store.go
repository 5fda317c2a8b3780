package store

import (
	"context"

	"livepoll/internal/domain"
)

// Store is the durable record of polls, their tallies and their voter sets.
// It is the single source of truth; everything it hands out is a snapshot
// copy, never an alias into stored state.
//
// ApplyVote must serialize the duplicate-vote check and the mutation per
// poll: an accepted vote always sees a voter set that reflects every prior
// accepted vote for that poll. Votes for distinct polls must not block each
// other.
type Store interface {
	// Create validates question and options and persists a new poll with
	// all counts at zero. Returns the initial snapshot.
	Create(ctx context.Context, question string, options []string) (*domain.Snapshot, error)

	// Get returns the current snapshot of a poll, or domain.ErrPollNotFound.
	Get(ctx context.Context, pollID string) (*domain.Snapshot, error)

	// ApplyVote atomically records one vote for the given identity.
	// Fails with domain.ErrPollNotFound, domain.ErrInvalidOption or
	// domain.ErrAlreadyVoted; on success returns the post-vote snapshot.
	ApplyVote(ctx context.Context, pollID string, optionIndex int, voterID string) (*domain.Snapshot, error)

	// Close releases any underlying resources.
	Close() error
}
