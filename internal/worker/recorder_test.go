package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/swap-gateway/internal/kafka"
	"github.com/jmehdipour/swap-gateway/internal/model"
)

func event(id string) model.SwapEvent {
	return model.SwapEvent{ID: id, Provider: "fastswap", FromCurrency: "btc", ToCurrency: "eth"}
}

func message(t *testing.T, ev model.SwapEvent) kafka.Message {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return kafka.Message{Value: b}
}

func TestRunBatchWriter(t *testing.T) {
	t.Run("FlushesWhenBatchFills", func(t *testing.T) {
		repo := &captureRepo{}
		w := &Recorder{Events: repo, BatchSize: 2, BatchWait: time.Hour}

		in := make(chan model.SwapEvent)
		done := make(chan struct{})
		go func() {
			w.runBatchWriter(context.Background(), in)
			close(done)
		}()

		in <- event("a")
		in <- event("b")
		in <- event("c")
		close(in)
		<-done

		batches := repo.snapshot()
		require.Len(t, batches, 2)
		assert.Len(t, batches[0], 2)
		assert.Len(t, batches[1], 1)
		assert.Equal(t, "a", batches[0][0].ID)
		assert.Equal(t, "c", batches[1][0].ID)
	})

	t.Run("FlushesOnTimer", func(t *testing.T) {
		repo := &captureRepo{}
		w := &Recorder{Events: repo, BatchSize: 100, BatchWait: 20 * time.Millisecond}

		in := make(chan model.SwapEvent, 1)
		done := make(chan struct{})
		go func() {
			w.runBatchWriter(context.Background(), in)
			close(done)
		}()

		in <- event("a")

		require.Eventually(t, func() bool {
			return len(repo.snapshot()) == 1
		}, time.Second, 10*time.Millisecond)

		close(in)
		<-done
	})

	t.Run("FlushesOnShutdown", func(t *testing.T) {
		repo := &captureRepo{}
		w := &Recorder{Events: repo, BatchSize: 100, BatchWait: time.Hour}

		in := make(chan model.SwapEvent)
		done := make(chan struct{})
		go func() {
			w.runBatchWriter(context.Background(), in)
			close(done)
		}()

		in <- event("a")
		in <- event("b")
		close(in)
		<-done

		batches := repo.snapshot()
		require.Len(t, batches, 1)
		assert.Len(t, batches[0], 2)
	})

	t.Run("InsertFailureDropsBatchAndContinues", func(t *testing.T) {
		repo := &captureRepo{failFirst: true}
		w := &Recorder{Events: repo, BatchSize: 1, BatchWait: time.Hour}

		in := make(chan model.SwapEvent)
		done := make(chan struct{})
		go func() {
			w.runBatchWriter(context.Background(), in)
			close(done)
		}()

		in <- event("lost")
		in <- event("kept")
		close(in)
		<-done

		batches := repo.snapshot()
		require.Len(t, batches, 1)
		assert.Equal(t, "kept", batches[0][0].ID)
	})
}

func TestRun(t *testing.T) {
	t.Run("DeliversEventsToClickHouse", func(t *testing.T) {
		src := &fakeSource{msgs: []kafka.Message{
			message(t, event("a")),
			message(t, event("b")),
		}}
		repo := &captureRepo{}
		w := &Recorder{Consumer: src, Events: repo, Workers: 2, BatchSize: 10, BatchWait: 10 * time.Millisecond}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			_ = w.Run(ctx)
			close(done)
		}()

		require.Eventually(t, func() bool {
			return len(repo.events()) == 2 && src.commitCount() == 2
		}, time.Second, 10*time.Millisecond)

		cancel()
		<-done
	})

	t.Run("PoisonMessagesAreCommittedAndSkipped", func(t *testing.T) {
		src := &fakeSource{msgs: []kafka.Message{
			{Value: []byte("{not json")},
			{Value: []byte(`{"provider":"fastswap"}`)},
			message(t, event("a")),
		}}
		repo := &captureRepo{}
		w := &Recorder{Consumer: src, Events: repo, Workers: 1, BatchSize: 10, BatchWait: 10 * time.Millisecond}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			_ = w.Run(ctx)
			close(done)
		}()

		require.Eventually(t, func() bool {
			return src.commitCount() == 3
		}, time.Second, 10*time.Millisecond)

		cancel()
		<-done

		evs := repo.events()
		require.Len(t, evs, 1)
		assert.Equal(t, "a", evs[0].ID)
	})

	t.Run("StopsCleanlyWhenWriterIsSlow", func(t *testing.T) {
		msgs := make([]kafka.Message, 0, 10)
		for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
			msgs = append(msgs, message(t, event(id)))
		}
		src := &fakeSource{msgs: msgs}
		repo := &gatedRepo{gate: make(chan struct{})}
		w := &Recorder{Consumer: src, Events: repo, Workers: 4, BatchSize: 1, BatchWait: time.Hour}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			_ = w.Run(ctx)
			close(done)
		}()

		// Writer holds one event in a stalled insert, the channel buffer holds
		// two more, so further sends are blocked mid-flight.
		require.Eventually(t, func() bool {
			return src.commitCount() == 3
		}, time.Second, 10*time.Millisecond)

		cancel()
		close(repo.gate)

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("recorder did not stop after cancellation")
		}
	})
}

// fakeSource hands out scripted messages, then blocks until ctx ends.
type fakeSource struct {
	mu      sync.Mutex
	msgs    []kafka.Message
	commits int
}

func (s *fakeSource) Fetch(ctx context.Context) (kafka.Message, error) {
	s.mu.Lock()
	if len(s.msgs) > 0 {
		m := s.msgs[0]
		s.msgs = s.msgs[1:]
		s.mu.Unlock()
		return m, nil
	}
	s.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (s *fakeSource) Commit(ctx context.Context, m kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits++
	return nil
}

func (s *fakeSource) commitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// captureRepo records each flushed batch; failFirst rejects the first insert.
type captureRepo struct {
	mu        sync.Mutex
	batches   [][]model.SwapEvent
	failFirst bool
	calls     int
}

func (r *captureRepo) InsertEvents(ctx context.Context, events []model.SwapEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.failFirst && r.calls == 1 {
		return errors.New("clickhouse down")
	}
	batch := make([]model.SwapEvent, len(events))
	copy(batch, events)
	r.batches = append(r.batches, batch)
	return nil
}

func (r *captureRepo) List(ctx context.Context, status, fromCurrency, toCurrency string, limit, offset int) ([]model.SwapEventRow, error) {
	return nil, nil
}

func (r *captureRepo) snapshot() [][]model.SwapEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]model.SwapEvent, len(r.batches))
	copy(out, r.batches)
	return out
}

func (r *captureRepo) events() []model.SwapEvent {
	var out []model.SwapEvent
	for _, b := range r.snapshot() {
		out = append(out, b...)
	}
	return out
}

// gatedRepo stalls every insert until gate is closed.
type gatedRepo struct {
	captureRepo
	gate chan struct{}
}

func (r *gatedRepo) InsertEvents(ctx context.Context, events []model.SwapEvent) error {
	<-r.gate
	return r.captureRepo.InsertEvents(ctx, events)
}
