package server

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionTracker_Lifecycle(t *testing.T) {
	tracker := NewSessionTracker(time.Hour, nil, nil)
	defer tracker.Stop()
	ctx := context.Background()

	tracker.Register(ctx, "a")
	tracker.Register(ctx, "b")
	tracker.Register(ctx, "a")
	assert.Equal(t, 2, tracker.Count())

	ids := tracker.ListSessions()
	sort.Strings(ids)
	assert.Equal(t, []string{"a", "b"}, ids)

	tracker.Unregister(ctx, "a")
	tracker.Unregister(ctx, "missing")
	assert.Equal(t, []string{"b"}, tracker.ListSessions())
}

func TestSessionTracker_ExpireIdle(t *testing.T) {
	tracker := NewSessionTracker(time.Minute, nil, nil)
	defer tracker.Stop()
	ctx := context.Background()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }

	tracker.Register(ctx, "idle")
	tracker.Register(ctx, "busy")

	now = now.Add(45 * time.Second)
	tracker.Touch("busy")
	tracker.Touch("unknown")

	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, tracker.expire(ctx))
	assert.Equal(t, []string{"busy"}, tracker.ListSessions())
}

func TestSessionTracker_StopTwice(t *testing.T) {
	tracker := NewSessionTracker(0, nil, nil)
	tracker.Stop()
	tracker.Stop()
	assert.Equal(t, DefaultSessionIdleTimeout, tracker.idleTimeout)
}
