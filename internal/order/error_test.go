package order

import (
	"context"
	"errors"
	"testing"

	"github.com/JFForsythe/kalshitest/pkg/exception"

	"github.com/stretchr/testify/assert"
	yerrors "github.com/yanun0323/errors"
)

func TestFixErrorMessages(t *testing.T) {
	assert.Equal(t, "order rejected: limit price must be positive", NewRejected("limit price must be positive").Error())
	assert.Equal(t, "connection failure: session lost", NewConnection("session lost", nil).Error())
	assert.Equal(t, "connection failure: session lost: context canceled", NewConnection("session lost", context.Canceled).Error())
}

func TestFixErrorMatchesSentinels(t *testing.T) {
	rejected := yerrors.Wrap(NewRejected("bad"), "send order")
	assert.True(t, IsRejected(rejected))
	assert.False(t, IsConnection(rejected))
	assert.ErrorIs(t, rejected, exception.ErrOrderRejected)

	conn := yerrors.Wrap(NewConnection("lost", context.DeadlineExceeded), "modify order")
	assert.True(t, IsConnection(conn))
	assert.False(t, IsRejected(conn))
	assert.ErrorIs(t, conn, context.DeadlineExceeded)

	var fixErr *FixError
	if !errors.As(conn, &fixErr) {
		t.Fatalf("expected *FixError in chain, got %v", conn)
	}
	assert.Equal(t, FixErrorConnection, fixErr.Kind)

	// wrapping a wrapped FixError keeps both the kind and the cause reachable
	twice := yerrors.Wrapf(yerrors.Wrap(NewConnection("lost", context.Canceled), "modify order"), "round %d", 2)
	assert.True(t, IsConnection(twice))
	assert.ErrorIs(t, twice, context.Canceled)
	if !errors.As(twice, &fixErr) || fixErr.Reason != "lost" {
		t.Fatalf("expected *FixError with reason lost in chain, got %v", twice)
	}

	assert.False(t, IsRejected(errors.New("plain")))
	assert.False(t, IsConnection(nil))
}

func TestFixErrorKind(t *testing.T) {
	cases := []struct {
		kind      FixErrorKind
		available bool
		name      string
	}{
		{FixErrorConnection, true, "connection"},
		{FixErrorRejected, true, "rejected"},
		{FixErrorKind(0), false, "unknown"},
		{FixErrorKind(99), false, "unknown"},
	}
	for _, tc := range cases {
		if got := tc.kind.IsAvailable(); got != tc.available {
			t.Fatalf("%d IsAvailable = %v, want %v", tc.kind, got, tc.available)
		}
		if got := tc.kind.String(); got != tc.name {
			t.Fatalf("%d String = %q, want %q", tc.kind, got, tc.name)
		}
	}
}
