package async

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFutureResolvesOnce(t *testing.T) {
	f := New[int]()
	f.Resolve(7, nil)
	f.Resolve(9, errors.New("late"))

	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestGoPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	f := Go(func() (bool, error) { return false, boom })
	_, err := f.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestWaitHonoursContext(t *testing.T) {
	f := New[string]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	f.Resolve("late", nil)
	<-f.Done()
	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "late", v)
}

func TestResolved(t *testing.T) {
	v, err := Resolved(3, nil).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}
