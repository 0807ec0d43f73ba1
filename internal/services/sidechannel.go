package services

import (
	"context"
	"time"

	"github.com/studiora/studiora-backend/internal/logger"
)

// SideChannel runs best-effort side effects whose failure must never reach the
// caller. Reconciliation submits the welcome-message seed through it: the
// financial state transition has already committed by then and must not be
// rolled back for a messaging failure.
type SideChannel interface {
	Submit(name string, fn func(ctx context.Context) error)
}

type sideTask struct {
	name string
	fn   func(ctx context.Context) error
}

type AsyncSideChannel struct {
	log   *logger.Logger
	queue chan sideTask
}

func NewSideChannel(baseLog *logger.Logger, buffer int) *AsyncSideChannel {
	if buffer <= 0 {
		buffer = 64
	}
	return &AsyncSideChannel{
		log:   baseLog.With("component", "SideChannel"),
		queue: make(chan sideTask, buffer),
	}
}

func (s *AsyncSideChannel) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case task := <-s.queue:
				taskCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				if err := task.fn(taskCtx); err != nil {
					s.log.Warn("Side effect failed", "task", task.name, "error", err)
				}
				cancel()
			}
		}
	}()
}

func (s *AsyncSideChannel) Submit(name string, fn func(ctx context.Context) error) {
	select {
	case s.queue <- sideTask{name: name, fn: fn}:
	default:
		s.log.Warn("Side channel queue full, dropping task", "task", name)
	}
}

// InlineSideChannel executes submitted tasks synchronously. Tests use it so
// side effects are observable without goroutine scheduling.
type InlineSideChannel struct {
	Log *logger.Logger
}

func (s *InlineSideChannel) Submit(name string, fn func(ctx context.Context) error) {
	if err := fn(context.Background()); err != nil && s.Log != nil {
		s.Log.Warn("Side effect failed", "task", name, "error", err)
	}
}
