package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundAppliesDeadline(t *testing.T) {
	ctx, cancel := Bound(context.Background(), 5*time.Second)
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok, "bounded context must carry a deadline")
	assert.WithinDuration(t, time.Now().Add(5*time.Second), deadline, time.Second)
}

func TestBoundZeroLeavesContextUntouched(t *testing.T) {
	parent := context.Background()
	ctx, cancel := Bound(parent, 0)
	defer cancel()

	_, ok := ctx.Deadline()
	assert.False(t, ok)
	assert.Equal(t, parent, ctx)
}

func TestBoundExpires(t *testing.T) {
	ctx, cancel := Bound(context.Background(), time.Millisecond)
	defer cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("bounded context did not expire")
	}
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
}
