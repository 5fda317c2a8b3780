package domain

import (
	"strings"
	"time"
)

// Poll limits
const (
	MaxQuestionLen = 200
	MaxOptionLen   = 100
	MinOptions     = 2
	MaxOptions     = 10
)

// Option is one ballot entry of a poll. Vote counts only ever grow.
type Option struct {
	Text  string
	Votes int
}

// Poll is the authoritative record of a poll: its question, its ordered
// options and the set of identities that have already voted. The voter set
// is membership-only; which option an identity picked is never recorded.
type Poll struct {
	ID        string
	Question  string
	Options   []Option
	CreatedAt time.Time

	voters map[string]struct{}
}

// NewPoll validates the question and options and returns a poll with all
// vote counts at zero and an empty voter set. Question and option texts are
// trimmed; options must be pairwise distinct under case-insensitive
// comparison of the trimmed text.
func NewPoll(id, question string, options []string) (*Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if len(question) > MaxQuestionLen {
		return nil, ErrQuestionTooLong
	}

	if len(options) < MinOptions {
		return nil, ErrTooFewOptions
	}
	if len(options) > MaxOptions {
		return nil, ErrTooManyOptions
	}

	opts := make([]Option, 0, len(options))
	seen := make(map[string]struct{}, len(options))
	for _, text := range options {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, ErrEmptyOption
		}
		if len(text) > MaxOptionLen {
			return nil, ErrOptionTooLong
		}
		key := strings.ToLower(text)
		if _, dup := seen[key]; dup {
			return nil, ErrDuplicateOptions
		}
		seen[key] = struct{}{}
		opts = append(opts, Option{Text: text})
	}

	return &Poll{
		ID:        id,
		Question:  question,
		Options:   opts,
		CreatedAt: time.Now().UTC(),
		voters:    make(map[string]struct{}),
	}, nil
}

// HasVoted reports whether the identity is already a member of the poll's
// voter set. Exact string match; identity derivation belongs to the caller.
func (p *Poll) HasVoted(voterID string) bool {
	_, ok := p.voters[voterID]
	return ok
}

// ApplyVote increments the chosen option and records the voter identity.
// The check and the mutation happen together; the caller must hold
// whatever lock serializes votes for this poll.
func (p *Poll) ApplyVote(optionIndex int, voterID string) error {
	if optionIndex < 0 || optionIndex >= len(p.Options) {
		return ErrInvalidOption
	}
	if p.HasVoted(voterID) {
		return ErrAlreadyVoted
	}
	p.Options[optionIndex].Votes++
	p.voters[voterID] = struct{}{}
	return nil
}

// VoterCount returns the size of the voter set.
func (p *Poll) VoterCount() int {
	return len(p.voters)
}

// Snapshot returns an immutable copy of the poll's public state. Voter
// identities are excluded; snapshots are safe to hand to any subscriber.
func (p *Poll) Snapshot() *Snapshot {
	snap := &Snapshot{
		PollID:    p.ID,
		Question:  p.Question,
		Options:   make([]OptionCount, len(p.Options)),
		CreatedAt: p.CreatedAt,
	}
	for i, o := range p.Options {
		snap.Options[i] = OptionCount{Text: o.Text, Votes: o.Votes}
		snap.TotalVotes += o.Votes
	}
	return snap
}
