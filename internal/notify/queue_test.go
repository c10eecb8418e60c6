package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueDrainEmpties(t *testing.T) {
	q := NewQueue(0)
	Errorf(q, "load ledger: %s", "timeout")
	Successf(q, "exported %d rows", 3)

	got := q.Drain()
	require.Len(t, got, 2)
	require.Equal(t, LevelError, got[0].Level)
	require.Equal(t, "load ledger: timeout", got[0].Message)
	require.False(t, got[0].At.IsZero())
	require.Equal(t, LevelSuccess, got[1].Level)
	require.Equal(t, 0, q.Len())
	require.Empty(t, q.Drain())
}

func TestQueueDropsOldestWhenFull(t *testing.T) {
	q := NewQueue(2)
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q.clock = func() time.Time { return fixed }
	Warnf(q, "one")
	Warnf(q, "two")
	Warnf(q, "three")

	got := q.Drain()
	require.Len(t, got, 2)
	require.Equal(t, "two", got[0].Message)
	require.Equal(t, "three", got[1].Message)
	require.Equal(t, fixed, got[1].At)
}

func TestNilNotifierIgnored(t *testing.T) {
	require.NotPanics(t, func() {
		Errorf(nil, "ignored")
		Discard.Notify(Notice{Message: "dropped"})
		var q *Queue
		q.Notify(Notice{})
		require.Nil(t, q.Drain())
	})
}
