package worker

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/jmehdipour/swap-gateway/internal/kafka"
	"github.com/jmehdipour/swap-gateway/internal/model"
	"github.com/jmehdipour/swap-gateway/internal/repository"
)

// EventSource is the slice of the Kafka consumer the recorder depends on.
type EventSource interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, m kafka.Message) error
}

// Recorder:
// - fetches swap.created events from Kafka (published by the outbox relay),
// - batches them,
// - mirrors them into the ClickHouse reporting table.
type Recorder struct {
	// Dependencies
	Consumer EventSource
	Events   repository.CHSwapsRepository

	// Behavior
	Workers   int           // number of goroutines parsing messages
	BatchSize int           // max buffered events per flush
	BatchWait time.Duration // max time to wait before flush
}

// NewRecorder builds a recorder with sane defaults.
func NewRecorder(consumer EventSource, events repository.CHSwapsRepository) *Recorder {
	return &Recorder{
		Consumer:  consumer,
		Events:    events,
		Workers:   16,
		BatchSize: 200,
		BatchWait: 300 * time.Millisecond,
	}
}

// Run starts the recorder and blocks until ctx is cancelled.
func (w *Recorder) Run(ctx context.Context) error {
	if w.Workers <= 0 {
		w.Workers = 16
	}
	if w.BatchSize <= 0 {
		w.BatchSize = 200
	}
	if w.BatchWait <= 0 {
		w.BatchWait = 300 * time.Millisecond
	}

	// Channel for parsed events → batch writer
	events := make(chan model.SwapEvent, w.BatchSize*2)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		w.runBatchWriter(ctx, events)
	}()

	// Fetch loop → fan-out to processors
	msgCh := make(chan kafka.Message, w.Workers*2)

	// Fetcher goroutine; Fetch absorbs transient broker errors, so an error
	// here means ctx ended.
	go func() {
		defer close(msgCh)
		for {
			m, err := w.Consumer.Fetch(ctx)
			if err != nil {
				return
			}
			select {
			case msgCh <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Start processors
	var wg sync.WaitGroup
	for i := 0; i < w.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.runProcessor(ctx, msgCh, events)
		}()
	}

	// The events channel closes only after every processor has stopped
	// sending on it; then wait for the writer's final flush.
	wg.Wait()
	close(events)
	<-writerDone
	return nil
}

// runProcessor parses events and always commits (at-least-once; the ClickHouse
// table dedupes on id via ReplacingMergeTree).
func (w *Recorder) runProcessor(ctx context.Context, in <-chan kafka.Message, out chan<- model.SwapEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-in:
			if !ok {
				return
			}

			var ev model.SwapEvent
			if err := json.Unmarshal(m.Value, &ev); err != nil || ev.ID == "" {
				_ = w.Consumer.Commit(ctx, m) // poison → commit, skip
				if err != nil {
					log.Printf("[recorder] bad event json: %v", err)
				} else {
					log.Printf("[recorder] event missing id")
				}
				continue
			}

			select {
			case out <- ev:
			case <-ctx.Done():
				// Uncommitted, so the event is redelivered on restart.
				return
			}

			if err := w.Consumer.Commit(ctx, m); err != nil {
				log.Printf("[recorder] commit err: %v", err)
			}
		}
	}
}

// runBatchWriter does size/time-based flush of ClickHouse inserts.
func (w *Recorder) runBatchWriter(ctx context.Context, in <-chan model.SwapEvent) {
	tick := time.NewTicker(w.BatchWait)
	defer tick.Stop()

	batch := make([]model.SwapEvent, 0, w.BatchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := w.Events.InsertEvents(ctx, batch); err != nil {
			// Dropped rows only affect reporting; MySQL remains the source
			// of truth for swaps.
			log.Printf("[recorder] clickhouse insert err (%d events dropped): %v", len(batch), err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-in:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= w.BatchSize {
				flush()
			}
		case <-tick.C:
			flush()
		}
	}
}
