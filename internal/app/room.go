package app

import (
	"log/slog"
	"sync"
	"time"

	"livepoll/internal/domain"
)

const (
	// updateQueueSize is the per-room buffer of pending snapshot broadcasts
	updateQueueSize = 64
)

// Conn is a connection handle a room can push messages to. Send must not
// block; implementations queue into a per-connection buffer and drop on
// overflow.
type Conn interface {
	Send(message any) error
	ID() string
	Close() error
}

// UpdateEvent is the message fanned out to every subscriber of a room when
// a vote lands.
type UpdateEvent struct {
	Type      string           `json:"type"`
	PollID    string           `json:"pollId"`
	Payload   *domain.Snapshot `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
}

// EventUpdate is the wire type of an UpdateEvent.
const EventUpdate = "update"

// NewUpdateEvent wraps a snapshot for delivery, stamped with the current
// time.
func NewUpdateEvent(pollID string, snap *domain.Snapshot) *UpdateEvent {
	return &UpdateEvent{
		Type:      EventUpdate,
		PollID:    pollID,
		Payload:   snap,
		Timestamp: time.Now().UTC(),
	}
}

// Room is the set of connections currently watching one poll. A single
// goroutine drains the update queue, so subscribers see snapshots in the
// order the votes were applied.
type Room struct {
	pollID string
	logger *slog.Logger

	mu         sync.RWMutex
	clients    map[Conn]struct{}
	lastActive time.Time

	// voteMu serializes apply-vote plus enqueue, keeping broadcast order
	// identical to commit order for this poll.
	voteMu sync.Mutex

	updates chan *domain.Snapshot
	done    chan struct{}
}

func newRoom(pollID string, logger *slog.Logger) *Room {
	r := &Room{
		pollID:     pollID,
		logger:     logger,
		clients:    make(map[Conn]struct{}),
		lastActive: time.Now(),
		updates:    make(chan *domain.Snapshot, updateQueueSize),
		done:       make(chan struct{}),
	}
	go r.broadcastLoop()
	return r
}

// add registers a connection with the room.
func (r *Room) add(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[conn] = struct{}{}
	r.lastActive = time.Now()
}

// remove drops a connection; reports whether it was a member.
func (r *Room) remove(conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[conn]; !ok {
		return false
	}
	delete(r.clients, conn)
	r.lastActive = time.Now()
	return true
}

// size returns the current subscriber count.
func (r *Room) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

func (r *Room) idleSince() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastActive
}

// enqueue queues a snapshot for broadcast without blocking the voter.
func (r *Room) enqueue(snap *domain.Snapshot) {
	r.mu.Lock()
	r.lastActive = time.Now()
	r.mu.Unlock()

	select {
	case r.updates <- snap:
	default:
		r.logger.Warn("update queue full, dropping snapshot", "pollID", r.pollID)
	}
}

// broadcastLoop fans queued snapshots out to every subscriber. Delivery is
// best-effort per connection; one slow or dead connection never delays the
// rest and never affects the committed vote.
func (r *Room) broadcastLoop() {
	for {
		select {
		case <-r.done:
			return
		case snap := <-r.updates:
			event := NewUpdateEvent(r.pollID, snap)

			r.mu.RLock()
			for conn := range r.clients {
				if err := conn.Send(event); err != nil {
					r.logger.Debug("failed to send to subscriber",
						"pollID", r.pollID, "connID", conn.ID(), "error", err)
				}
			}
			r.mu.RUnlock()
		}
	}
}

// close stops the broadcast loop. Clients are not closed here; they may
// still be subscribed to other polls' lifecycles via the hub.
func (r *Room) close() {
	select {
	case <-r.done:
	default:
		close(r.done)
	}
}
