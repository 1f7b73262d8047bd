package session

import (
	"sync"
	"time"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
)

// Supervisor owns the two one-shot timers of a single game: the idle
// timer is rearmed on every accepted move, the absolute timer is fixed
// at game start. Both callbacks funnel into the same lock-guarded
// expire path, so whichever fires first wins and the other observes a
// terminal game.
type Supervisor struct {
	idleWindow time.Duration

	idle     *time.Timer
	absolute *time.Timer

	stopOnce sync.Once
}

// NewSupervisor arms both timers. expire must be safe to call from a
// timer goroutine and must tolerate an already-terminal game.
func NewSupervisor(idleWindow, maxWindow time.Duration, expire func(reason string)) *Supervisor {
	return &Supervisor{
		idleWindow: idleWindow,
		idle: time.AfterFunc(idleWindow, func() {
			expire(entity.ReasonIdleTimeout)
		}),
		absolute: time.AfterFunc(maxWindow, func() {
			expire(entity.ReasonAbsoluteTimeout)
		}),
	}
}

// ResetIdle rearms the idle timer to now + idle window. The absolute
// timer is never rearmed.
func (that *Supervisor) ResetIdle() {
	that.idle.Reset(that.idleWindow)
}

// Stop cancels both timers. Idempotent; a callback already in flight
// no-ops against the terminal game under the per-game lock.
func (that *Supervisor) Stop() {
	that.stopOnce.Do(func() {
		that.idle.Stop()
		that.absolute.Stop()
	})
}
