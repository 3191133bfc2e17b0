package strategy

import (
	"context"
	"time"

	"github.com/openrange/orbbot/internal/observ"
)

// Scheduler invokes the controller at a fixed interval. One tick at a time:
// the next tick does not start until the previous returned, and cancellation
// is checked between ticks, never mid-flight.
type Scheduler struct {
	interval time.Duration
	ctrl     *Controller
}

func NewScheduler(interval time.Duration, ctrl *Controller) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Scheduler{interval: interval, ctrl: ctrl}
}

// Run blocks until ctx is cancelled. The first tick fires immediately.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	observ.Log("scheduler_started", map[string]any{"interval": s.interval.String()})

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			observ.Log("scheduler_stopped", map[string]any{"cause": ctx.Err().Error()})
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	res := s.ctrl.Tick(ctx)
	observ.Log("tick", map[string]any{
		"symbol": res.Symbol,
		"status": res.Status,
		"phase":  res.Phase,
		"reason": res.Reason,
	})
}
