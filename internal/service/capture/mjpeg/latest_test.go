package mjpeg

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatest_KeepsOnlyNewestFrame(t *testing.T) {
	l := NewLatest()
	l.Offer([]byte("one"))
	l.Offer([]byte("two"))
	l.Offer([]byte("three"))

	frame, err := l.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "three", string(frame))
}

func TestLatest_CancelUnblocksNext(t *testing.T) {
	l := NewLatest()
	ctx, cancel := context.WithCancel(context.Background())

	result := make(chan error, 1)
	go func() {
		_, err := l.Next(ctx)
		result <- err
	}()

	select {
	case err := <-result:
		t.Fatalf("Next returned before cancel: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-result:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not return after cancel")
	}
}

func TestLatest_CloseUnblocksNext(t *testing.T) {
	l := NewLatest()

	result := make(chan error, 1)
	go func() {
		_, err := l.Next(context.Background())
		result <- err
	}()

	l.Close()
	l.Close()
	select {
	case err := <-result:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not return after Close")
	}

	l.Offer([]byte("late"))
	_, err := l.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestLatest_CancelledContextWinsOverPendingFrame(t *testing.T) {
	l := NewLatest()
	l.Offer([]byte("pending"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}
