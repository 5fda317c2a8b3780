package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"livepoll/internal/domain"
	"livepoll/internal/metrics"
	"livepoll/internal/store"
)

const (
	// StaleRoomTimeout is how long an empty room survives before cleanup
	StaleRoomTimeout = 10 * time.Minute

	cleanupInterval = time.Minute
)

// Hub owns the live rooms and routes votes between the poll store and the
// subscribers watching each poll. One hub is created at process start and
// torn down at shutdown.
type Hub struct {
	store  store.Store
	logger *slog.Logger

	mu     sync.RWMutex
	rooms  map[string]*Room
	byConn map[Conn]*Room

	done      chan struct{}
	closeOnce sync.Once
}

// NewHub creates a hub on top of the given store.
func NewHub(st store.Store, logger *slog.Logger) *Hub {
	h := &Hub{
		store:  st,
		logger: logger,
		rooms:  make(map[string]*Room),
		byConn: make(map[Conn]*Room),
		done:   make(chan struct{}),
	}

	go h.cleanupLoop()

	return h
}

// CreatePoll validates and persists a new poll, returning its initial
// snapshot.
func (h *Hub) CreatePoll(ctx context.Context, question string, options []string) (*domain.Snapshot, error) {
	snap, err := h.store.Create(ctx, question, options)
	if err != nil {
		return nil, err
	}

	metrics.IncPollCreated()
	h.logger.Info("poll created", "pollID", snap.PollID, "options", len(snap.Options))
	return snap, nil
}

// GetPoll returns the current snapshot of a poll.
func (h *Hub) GetPoll(ctx context.Context, pollID string) (*domain.Snapshot, error) {
	return h.store.Get(ctx, pollID)
}

// Subscribe registers a connection as a viewer of the poll and returns the
// current snapshot so a late joiner sees live state immediately. A
// connection watches at most one poll; re-subscribing leaves the previous
// room first.
func (h *Hub) Subscribe(ctx context.Context, pollID string, conn Conn) (*domain.Snapshot, error) {
	snap, err := h.store.Get(ctx, pollID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if prev, ok := h.byConn[conn]; ok && prev.pollID != pollID {
		prev.remove(conn)
	}
	room := h.roomLocked(pollID)
	room.add(conn)
	h.byConn[conn] = room
	metrics.SetActiveRooms(len(h.rooms))
	h.mu.Unlock()

	h.logger.Debug("subscribed", "pollID", pollID, "connID", conn.ID())
	return snap, nil
}

// Unsubscribe removes a connection from whatever room it belongs to.
// Safe to call for connections that never joined a room.
func (h *Hub) Unsubscribe(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.byConn[conn]; ok {
		room.remove(conn)
		delete(h.byConn, conn)
		h.logger.Debug("unsubscribed", "pollID", room.pollID, "connID", conn.ID())
	}
}

// Vote applies one vote and, on success, queues the new snapshot for the
// poll's room. Joining the room is not required to vote. Rejections are
// returned to the caller and never broadcast.
func (h *Hub) Vote(ctx context.Context, pollID string, optionIndex int, voterID string) (*domain.Snapshot, error) {
	h.mu.Lock()
	room := h.roomLocked(pollID)
	h.mu.Unlock()

	room.voteMu.Lock()
	defer room.voteMu.Unlock()

	snap, err := h.store.ApplyVote(ctx, pollID, optionIndex, voterID)
	if err != nil {
		switch err {
		case domain.ErrPollNotFound, domain.ErrInvalidOption, domain.ErrAlreadyVoted:
			metrics.IncVote("rejected")
		default:
			metrics.IncVote("error")
		}
		return nil, err
	}

	metrics.IncVote("accepted")
	room.enqueue(snap)
	return snap, nil
}

// RoomCount returns the number of live rooms.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// SubscriberCount returns the total subscribers across all rooms.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byConn)
}

// Close shuts down the hub and every room.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		defer h.mu.Unlock()

		for _, room := range h.rooms {
			room.close()
		}
		h.rooms = make(map[string]*Room)
		h.byConn = make(map[Conn]*Room)
	})
}

// roomLocked returns the room for a poll, creating it on first use.
// Caller must hold h.mu.
func (h *Hub) roomLocked(pollID string) *Room {
	room, ok := h.rooms[pollID]
	if !ok {
		room = newRoom(pollID, h.logger)
		h.rooms[pollID] = room
	}
	return room
}

// cleanupLoop periodically drops rooms that have been empty for a while.
func (h *Hub) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.cleanupStaleRooms()
		}
	}
}

func (h *Hub) cleanupStaleRooms() {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	for pollID, room := range h.rooms {
		if room.size() == 0 && now.Sub(room.idleSince()) > StaleRoomTimeout {
			room.close()
			delete(h.rooms, pollID)
			h.logger.Info("stale room cleaned up", "pollID", pollID)
		}
	}
	metrics.SetActiveRooms(len(h.rooms))
}
