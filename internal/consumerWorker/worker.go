package consumerWorker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"eventtracker/internal/dto"
	"eventtracker/internal/rabbit"
	"eventtracker/internal/repo"
)

// Consumer is the part of the AMQP client the reader needs.
type Consumer interface {
	Consume(handler func([]byte) error) error
}

// Reader applies mirror operations published by the service to the repository.
type Reader struct {
	consumer Consumer
	repo     repo.Repository
	log      *zerolog.Logger
	done     chan struct{}
	cancel   context.CancelFunc
}

func NewReader(consumer Consumer, repo repo.Repository, log *zerolog.Logger) *Reader {
	return &Reader{
		consumer: consumer,
		repo:     repo,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Handle decodes and applies one message. Undecodable messages are
// discarded; repository failures are logged and dropped because the
// in-memory state stays authoritative.
func (r *Reader) Handle(ctx context.Context, body []byte) error {
	var msg dto.MirrorMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		r.log.Error().
			Err(err).
			Msgf("Failed to unmarshal message: %s", string(body))
		return fmt.Errorf("%w: %v", rabbit.ErrDiscard, err)
	}

	if err := Apply(ctx, r.repo, msg); err != nil {
		r.log.Error().
			Err(err).
			Str("op", msg.Op).
			Str("kind", msg.Kind).
			Str("id", msg.ID).
			Msg("Failed to mirror operation to the database")
		return nil
	}

	r.log.Debug().
		Str("op", msg.Op).
		Str("kind", msg.Kind).
		Str("id", msg.ID).
		Msg("mirrored operation")
	return nil
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.log.Info().Msg("Mirror reader started")

	go func() {
		defer close(r.done)

		if err := r.consumer.Consume(func(body []byte) error {
			return r.Handle(cctx, body)
		}); err != nil {
			r.log.Error().Err(err).Msg("Failed to start consuming")
			return
		}

		<-cctx.Done()
		r.log.Info().Msg("Mirror reader stopped by context")
	}()
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
