package domain

import "time"

// OptionCount is one option's text and tally inside a snapshot.
type OptionCount struct {
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// Snapshot is a point-in-time copy of a poll's public state. It carries no
// mutable references into the store, so it can be broadcast to every
// subscriber of a room without further copying.
type Snapshot struct {
	PollID     string        `json:"pollId"`
	Question   string        `json:"question"`
	Options    []OptionCount `json:"options"`
	TotalVotes int           `json:"totalVotes"`
	CreatedAt  time.Time     `json:"createdAt"`
}
