package notification

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const sendTimeout = 30 * time.Second

// Pool is the in-process dispatcher: a fixed set of workers draining a
// bounded queue. Submit never blocks.
type Pool struct {
	sender  Sender
	jobs    chan Job
	workers int

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

func NewPool(sender Sender, workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		sender:  sender,
		jobs:    make(chan Job, queueSize),
		workers: workers,
	}
}

func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	log.Info().Int("workers", p.workers).Int("queue", cap(p.jobs)).Msg("notification pool started")
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

// Stop refuses new jobs, lets the workers drain what is queued and waits.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	if p.cancel != nil {
		p.cancel()
	}
	log.Info().Msg("notification pool stopped")
}

func (p *Pool) Submit(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()

	for job := range p.jobs {
		p.deliver(ctx, id, job)
	}
}

func (p *Pool) deliver(ctx context.Context, worker int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Int("worker", worker).Str("to", job.RecipientEmail).Msg("notification worker panicked")
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := p.sender.Send(sendCtx, job); err != nil {
		log.Error().Err(err).
			Int("worker", worker).
			Str("to", job.RecipientEmail).
			Str("song", job.SongTitle).
			Str("artist", job.Artist).
			Msg("notification delivery failed")
		return
	}

	log.Info().Int("worker", worker).Str("to", job.RecipientEmail).Str("song", job.SongTitle).Msg("notification sent")
}
