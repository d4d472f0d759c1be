package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"eventtracker/internal/consumerWorker"
	"eventtracker/internal/dto"
	"eventtracker/internal/repo"
)

// Mirror receives every successful store mutation. Implementations never
// report failure to the caller: the in-memory state stays authoritative.
type Mirror interface {
	Publish(msg dto.MirrorMessage)
}

// Publisher is the part of the AMQP client the queue mirror needs.
type Publisher interface {
	Publish(message []byte) error
}

type queueMirror struct {
	pub Publisher
	log *zerolog.Logger
}

// NewQueueMirror publishes operations to the broker; consumerWorker applies them.
func NewQueueMirror(pub Publisher, log *zerolog.Logger) Mirror {
	return &queueMirror{pub: pub, log: log}
}

func (m *queueMirror) Publish(msg dto.MirrorMessage) {
	body, err := json.Marshal(msg)
	if err != nil {
		m.log.Error().Err(err).Str("kind", msg.Kind).Msg("failed to marshal mirror message")
		return
	}
	if err := m.pub.Publish(body); err != nil {
		m.log.Error().
			Err(err).
			Str("op", msg.Op).
			Str("kind", msg.Kind).
			Str("id", msg.ID).
			Msg("failed to publish mirror message")
	}
}

// Flusher is a mirror that can wait until everything published so far has
// reached the repository.
type Flusher interface {
	Flush()
}

// LocalMirror applies operations to the repository on a single goroutine,
// in publish order. Used when no broker is configured. The queue is
// unbounded: Publish never waits on the database.
type LocalMirror struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []dto.MirrorMessage
	busy    bool
	closed  bool

	repo repo.Repository
	log  *zerolog.Logger
	done chan struct{}
}

func NewLocalMirror(r repo.Repository, log *zerolog.Logger, buffer int) *LocalMirror {
	m := &LocalMirror{
		pending: make([]dto.MirrorMessage, 0, buffer),
		repo:    r,
		log:     log,
		done:    make(chan struct{}),
	}
	m.cond = sync.NewCond(&m.mu)
	go m.run()
	return m
}

func (m *LocalMirror) run() {
	defer close(m.done)
	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		for len(m.pending) == 0 && !m.closed {
			m.cond.Wait()
		}
		if len(m.pending) == 0 {
			return
		}
		msg := m.pending[0]
		m.pending[0] = dto.MirrorMessage{}
		m.pending = m.pending[1:]
		m.busy = true
		m.mu.Unlock()

		if err := consumerWorker.Apply(context.Background(), m.repo, msg); err != nil {
			m.log.Error().
				Err(err).
				Str("op", msg.Op).
				Str("kind", msg.Kind).
				Str("id", msg.ID).
				Msg("Failed to mirror operation to the database")
		}

		m.mu.Lock()
		m.busy = false
		m.cond.Broadcast()
	}
}

func (m *LocalMirror) Publish(msg dto.MirrorMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		m.log.Warn().Str("op", msg.Op).Str("kind", msg.Kind).Str("id", msg.ID).Msg("mirror closed, operation dropped")
		return
	}
	m.pending = append(m.pending, msg)
	m.cond.Broadcast()
}

// Flush blocks until every operation published before the call is applied.
func (m *LocalMirror) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.pending) > 0 || m.busy {
		m.cond.Wait()
	}
}

// Close drains pending operations and stops the worker.
func (m *LocalMirror) Close() {
	m.mu.Lock()
	m.closed = true
	m.cond.Broadcast()
	m.mu.Unlock()
	<-m.done
}

func mirrorMessage(op, kind, id string, v any) (dto.MirrorMessage, error) {
	msg := dto.MirrorMessage{Op: op, Kind: kind, ID: id}
	if v == nil {
		return msg, nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return msg, err
	}
	msg.Payload = payload
	return msg, nil
}
