package playback

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tvplayer/tvplayer/internal/db/models"
)

const (
	defaultQueueSize = 8
	writeTimeout     = 5 * time.Second
)

// Backend is the part of Store the Writer needs.
type Backend interface {
	Upsert(ctx context.Context, filePath string, positionMs, durationMs int64) (*models.PlaybackRecord, error)
	Delete(ctx context.Context, filePath string) error
}

type opKind int

const (
	opUpsert opKind = iota
	opDelete
)

type writeOp struct {
	kind       opKind
	filePath   string
	positionMs int64
	durationMs int64
}

// Writer applies position writes one at a time on a background goroutine so the
// caller never waits for the database.
type Writer struct {
	backend Backend
	queue   chan writeOp
	wg      sync.WaitGroup
	log     zerolog.Logger

	mu     sync.Mutex
	closed bool

	dropped atomic.Uint64
	written atomic.Uint64
}

// NewWriter starts a writer on backend. A non-positive size uses the default queue size.
func NewWriter(backend Backend, size int) *Writer {
	if size <= 0 {
		size = defaultQueueSize
	}

	w := &Writer{
		backend: backend,
		queue:   make(chan writeOp, size),
		log:     log.With().Str("component", "playback-writer").Logger(),
	}

	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		w.process()
	}()

	return w
}

// Checkpoint enqueues a position write. It never blocks: when the queue is full
// the write is dropped and false is returned.
func (w *Writer) Checkpoint(filePath string, positionMs, durationMs int64) bool {
	return w.enqueue(writeOp{
		kind:       opUpsert,
		filePath:   filePath,
		positionMs: positionMs,
		durationMs: durationMs,
	}, false)
}

// FinalCheckpoint enqueues a position write, waiting for queue space if needed.
func (w *Writer) FinalCheckpoint(filePath string, positionMs, durationMs int64) bool {
	return w.enqueue(writeOp{
		kind:       opUpsert,
		filePath:   filePath,
		positionMs: positionMs,
		durationMs: durationMs,
	}, true)
}

// Forget enqueues the deletion of the record of filePath.
func (w *Writer) Forget(filePath string) bool {
	return w.enqueue(writeOp{kind: opDelete, filePath: filePath}, true)
}

// Close stops accepting writes and waits until every queued write was applied.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}

	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	w.wg.Wait()
}

// Dropped returns how many checkpoints were dropped on a full queue.
func (w *Writer) Dropped() uint64 {
	return w.dropped.Load()
}

// Written returns how many operations were applied successfully.
func (w *Writer) Written() uint64 {
	return w.written.Load()
}

func (w *Writer) enqueue(op writeOp, block bool) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		w.dropped.Add(1)
		return false
	}

	if block {
		w.queue <- op
		return true
	}

	select {
	case w.queue <- op:
		return true
	default:
		w.dropped.Add(1)
		w.log.Warn().Str("file", op.filePath).Msg("checkpoint dropped, write queue full")

		return false
	}
}

func (w *Writer) process() {
	for op := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)

		var err error

		switch op.kind {
		case opUpsert:
			_, err = w.backend.Upsert(ctx, op.filePath, op.positionMs, op.durationMs)
		case opDelete:
			err = w.backend.Delete(ctx, op.filePath)
		}

		cancel()

		if err != nil {
			w.log.Error().Err(err).Str("file", op.filePath).Msg("position write failed")
			continue
		}

		w.written.Add(1)
	}
}
