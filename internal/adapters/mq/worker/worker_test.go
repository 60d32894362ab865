package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/tofo/internal/adapters/mq/queue"
	worker "github.com/okian/tofo/internal/adapters/mq/worker"
	model "github.com/okian/tofo/internal/domain/model"
	logging "github.com/okian/tofo/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type collected struct {
	unit   model.Unit
	result model.UnitResult
	err    error
}

type mockSink struct {
	mu    sync.Mutex
	items []collected
}

func (s *mockSink) Collect(_ context.Context, u model.Unit, r model.UnitResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, collected{unit: u, result: r, err: err})
}

func (s *mockSink) snapshot() []collected {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]collected(nil), s.items...)
}

var errBadEphemeris = errors.New("bad ephemeris")

func processor() worker.ProcessorFunc {
	return func(_ context.Context, u model.Unit) (model.UnitResult, error) {
		if u.Target.Name == "broken" {
			return model.UnitResult{}, errBadEphemeris
		}
		return model.UnitResult{Predicted: u.Seq + 1}, nil
	}
}

func fill(q *queue.InMemoryQueue, names ...string) {
	for i, n := range names {
		if !q.Enqueue(context.Background(), model.Unit{PlanID: "p", Seq: i, Target: &model.Target{Name: n}}) {
			panic("enqueue failed")
		}
	}
}

func TestWorker(t *testing.T) {
	convey.Convey("Given a worker over a closed queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		fill(q, "a", "broken", "c")
		convey.So(q.Close(), convey.ShouldBeNil)

		sink := &mockSink{}
		w := worker.NewInMemoryWorker(q, processor(), sink,
			worker.WithName("w-test"), worker.WithLogger(logging.Nop()))

		convey.Convey("When it runs", func() {
			w.Run(context.Background())

			convey.Convey("Then every unit reaches the sink, failures included", func() {
				items := sink.snapshot()
				convey.So(len(items), convey.ShouldEqual, 3)
				convey.So(items[0].result.Predicted, convey.ShouldEqual, 1)
				convey.So(errors.Is(items[1].err, errBadEphemeris), convey.ShouldBeTrue)
				convey.So(items[2].unit.Target.Name, convey.ShouldEqual, "c")
			})

			convey.Convey("Then shutdown after completion returns immediately", func() {
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a cancelled context", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		fill(q, "a", "b")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		sink := &mockSink{}
		w := worker.NewInMemoryWorker(q, processor(), sink, worker.WithLogger(logging.Nop()))
		w.Run(ctx)

		convey.Convey("Then no unit is processed", func() {
			convey.So(sink.snapshot(), convey.ShouldBeEmpty)
		})
	})

	convey.Convey("Given a running worker on an open queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		sink := &mockSink{}
		w := worker.NewInMemoryWorker(q, processor(), sink, worker.WithLogger(logging.Nop()))
		go w.Run(context.Background())

		convey.Convey("When it is shut down", func() {
			err := w.Shutdown(context.Background())

			convey.Convey("Then it stops", func() {
				convey.So(err, convey.ShouldBeNil)
				select {
				case <-w.Done():
				case <-time.After(time.Second):
					convey.So("worker still running", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool and many units", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		names := make([]string, 50)
		for i := range names {
			names[i] = fmt.Sprintf("T-%02d", i)
		}
		fill(q, names...)
		convey.So(q.Close(), convey.ShouldBeNil)

		sink := &mockSink{}
		p := worker.NewPool(4, q, processor(), sink, worker.WithLogger(logging.Nop()))
		convey.So(p.Size(), convey.ShouldEqual, 4)

		ctx := context.Background()
		p.Start(ctx)
		waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		convey.Convey("Then every unit is processed exactly once", func() {
			convey.So(p.Wait(waitCtx), convey.ShouldBeNil)
			seen := map[string]int{}
			for _, it := range sink.snapshot() {
				seen[it.unit.Target.Name]++
			}
			convey.So(len(seen), convey.ShouldEqual, 50)
			for _, n := range seen {
				convey.So(n, convey.ShouldEqual, 1)
			}
		})
	})

	convey.Convey("Given a pool on an open queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		p := worker.NewPool(2, q, processor(), &mockSink{}, worker.WithLogger(logging.Nop()))
		p.Start(context.Background())

		convey.Convey("When shut down", func() {
			convey.So(p.Shutdown(context.Background()), convey.ShouldBeNil)
			convey.So(q.IsClosed(), convey.ShouldBeTrue)
			convey.So(p.Wait(context.Background()), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a non-positive worker count", t, func() {
		q := queue.NewInMemoryQueue()
		p := worker.NewPool(0, q, processor(), &mockSink{})
		convey.So(p.Size(), convey.ShouldBeGreaterThan, 0)
	})
}
