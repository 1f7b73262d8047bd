package session

import (
	"testing"
	"time"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupervisor_IdleTimerFires(t *testing.T) {
	// Given: a supervisor with a short idle window and a long absolute window
	fired := make(chan string, 2)
	supervisor := NewSupervisor(50*time.Millisecond, time.Minute, func(reason string) {
		fired <- reason
	})
	defer supervisor.Stop()

	// Then: the idle timer fires with the idle reason
	select {
	case reason := <-fired:
		assert.Equal(t, entity.ReasonIdleTimeout, reason)
	case <-time.After(time.Second):
		t.Fatal("idle timer never fired")
	}
}

func TestSupervisor_AbsoluteTimerFiresDespiteResets(t *testing.T) {
	// Given: an idle window longer than the absolute window
	fired := make(chan string, 2)
	supervisor := NewSupervisor(80*time.Millisecond, 200*time.Millisecond, func(reason string) {
		fired <- reason
	})
	defer supervisor.Stop()

	// When: the idle timer is rearmed continuously, faster than it can fire
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 8; i++ {
			time.Sleep(40 * time.Millisecond)
			supervisor.ResetIdle()
		}
	}()

	// Then: the absolute timer still fires at its fixed deadline
	select {
	case reason := <-fired:
		assert.Equal(t, entity.ReasonAbsoluteTimeout, reason)
	case <-time.After(time.Second):
		t.Fatal("absolute timer never fired")
	}
	<-done
}

func TestSupervisor_ResetIdleDelaysFiring(t *testing.T) {
	// Given: a supervisor with a 120ms idle window
	fired := make(chan string, 2)
	supervisor := NewSupervisor(120*time.Millisecond, time.Minute, func(reason string) {
		fired <- reason
	})
	defer supervisor.Stop()

	// When: rearming the idle timer twice before it can fire
	time.Sleep(60 * time.Millisecond)
	supervisor.ResetIdle()
	time.Sleep(60 * time.Millisecond)
	supervisor.ResetIdle()

	// Then: nothing has fired yet
	select {
	case reason := <-fired:
		t.Fatalf("timer fired too early: %s", reason)
	default:
	}

	// And: without further resets the idle timer eventually fires
	select {
	case reason := <-fired:
		assert.Equal(t, entity.ReasonIdleTimeout, reason)
	case <-time.After(time.Second):
		t.Fatal("idle timer never fired")
	}
}

func TestSupervisor_StopIsIdempotent(t *testing.T) {
	// Given: a supervisor with short windows
	fired := make(chan string, 2)
	supervisor := NewSupervisor(50*time.Millisecond, 60*time.Millisecond, func(reason string) {
		fired <- reason
	})

	// When: stopping twice before either timer fires
	supervisor.Stop()
	require.NotPanics(t, supervisor.Stop)

	// Then: neither timer fires
	select {
	case reason := <-fired:
		t.Fatalf("timer fired after stop: %s", reason)
	case <-time.After(150 * time.Millisecond):
	}
}
