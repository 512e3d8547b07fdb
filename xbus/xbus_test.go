package xbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errShutdown = errors.New("shutdown")

const TEST_TIMEOUT = 2 * time.Second

type recorder struct {
	values []int
}

func (rec *recorder) Accept(value int) {
	rec.values = append(rec.values, value)
}

func TestXBus_New(t *testing.T) {
	assert := assert.New(t)

	bus := New()
	assert.True(bus.Valid())
	assert.Equal(uint64(0), bus.Generation())

	_, ok := bus.Value()
	assert.False(ok)

	var empty XBus
	assert.False(empty.Valid())
	assert.ErrorIs(empty.Write(context.Background(), 1), ErrBusNil)
}

func TestXBus_Clone(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	bus := New()
	other := bus.Clone()
	assert.True(bus.Same(other))
	assert.False(bus.Same(New()))

	assert.NoError(other.Write(ctx, 7))
	assert.Equal(uint64(1), bus.Generation())

	value, ok := bus.Value()
	assert.True(ok)
	assert.Equal(7, value)
}

func TestXBus_WriteReadOrder(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	bus := New()
	var cursor Cursor

	for _, value := range []int{1, 2, 3} {
		assert.NoError(bus.Write(ctx, value))
		got, err := bus.Read(ctx, &cursor)
		assert.NoError(err)
		assert.Equal(value, got)
		assert.Equal(Cursor(bus.Generation()), cursor)
	}
}

func TestXBus_ReadCoalesces(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	bus := New()
	var cursor Cursor

	assert.NoError(bus.Write(ctx, 10))
	assert.NoError(bus.Write(ctx, 20))

	value, err := bus.Read(ctx, &cursor)
	assert.NoError(err)
	assert.Equal(20, value)
	assert.Equal(Cursor(2), cursor)

	// Nothing new: the read must wait, so bound it.
	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = bus.Read(ctx, &cursor)
	assert.ErrorIs(err, context.DeadlineExceeded)
	assert.Equal(Cursor(2), cursor)
}

func TestXBus_ReadBlocksUntilWrite(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	bus := New()
	port := bus.Attach()

	got := make(chan int, 3)
	errs := make(chan error, 1)
	go func() {
		for range 3 {
			value, err := port.Read(ctx)
			if err != nil {
				errs <- err
				return
			}
			got <- value
		}
	}()

	for _, value := range []int{5, 6, 7} {
		// One write outstanding at a time, so nothing coalesces.
		require.NoError(bus.Write(ctx, value))
		select {
		case v := <-got:
			assert.Equal(value, v)
		case err := <-errs:
			t.Fatal(err)
		case <-time.After(TEST_TIMEOUT):
			t.Fatal("reader did not wake")
		}
	}
}

func TestXBus_SleepCancelled(t *testing.T) {
	assert := assert.New(t)

	bus := New()
	ctx, cancel := context.WithCancelCause(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := bus.Sleep(ctx, Cursor(bus.Generation()))
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("sleep returned early: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	cancel(errShutdown)

	select {
	case err := <-done:
		assert.ErrorIs(err, errShutdown)
	case <-time.After(TEST_TIMEOUT):
		t.Fatal("sleep did not observe cancellation")
	}
}

func TestXBus_SleepDoesNotConsume(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	bus := New()
	port := bus.Attach()

	assert.False(port.Pending())
	assert.NoError(bus.Write(ctx, 9))
	assert.True(port.Pending())

	assert.NoError(port.Sleep(ctx))
	assert.True(port.Pending())

	generation, err := bus.Sleep(ctx, port.Cursor)
	assert.NoError(err)
	assert.Equal(uint64(1), generation)

	value, err := port.Read(ctx)
	assert.NoError(err)
	assert.Equal(9, value)
	assert.False(port.Pending())
}

func TestXBus_CancelledAtEntry(t *testing.T) {
	assert := assert.New(t)

	bus := New()
	assert.NoError(bus.Write(context.Background(), 1))

	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(errShutdown)

	var cursor Cursor
	_, err := bus.Read(ctx, &cursor)
	assert.ErrorIs(err, errShutdown)
	assert.Equal(Cursor(0), cursor)

	_, err = bus.Sleep(ctx, cursor)
	assert.ErrorIs(err, errShutdown)

	assert.ErrorIs(bus.Write(ctx, 2), errShutdown)
	assert.Equal(uint64(1), bus.Generation())
}

func TestXBus_IndependentCursors(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	bus := New()
	a := bus.Attach()
	assert.NoError(bus.Write(ctx, 1))
	b := bus.Attach()

	value, err := a.Read(ctx)
	assert.NoError(err)
	assert.Equal(1, value)

	assert.False(b.Pending())
	assert.NoError(bus.Write(ctx, 2))

	value, err = b.Read(ctx)
	assert.NoError(err)
	assert.Equal(2, value)

	value, err = a.Read(ctx)
	assert.NoError(err)
	assert.Equal(2, value)
}

func TestXBus_ConcurrentWriters(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	const WRITERS = 8
	const WRITES = 100

	bus := New()
	rec := &recorder{}
	bus.Connect(rec)

	var wg sync.WaitGroup
	for w := range WRITERS {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range WRITES {
				assert.NoError(bus.Write(ctx, w*WRITES+n))
			}
		}()
	}
	wg.Wait()

	assert.Equal(uint64(WRITERS*WRITES), bus.Generation())
	assert.Len(rec.values, WRITERS*WRITES)
}

func TestXBus_Sink(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	bus := New()
	rec := &recorder{}
	bus.Connect(rec)

	for _, value := range []int{3, 1, 4} {
		assert.NoError(bus.Write(ctx, value))
	}

	assert.Equal([]int{3, 1, 4}, rec.values)
}

type queue struct {
	values []int
}

func (q *queue) Ready() bool {
	return len(q.values) > 0
}

func (q *queue) Provide() (value int) {
	value, q.values = q.values[0], q.values[1:]
	return
}

func TestXBus_Source(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	bus := New()
	port := bus.Attach()
	rec := &recorder{}
	bus.Connect(rec)

	// A read on a bus whose source is not ready waits for Notify.
	src := &queue{}
	bus.Supply(src)
	assert.False(port.Pending())

	got := make(chan int, 1)
	go func() {
		value, err := port.Read(ctx)
		assert.NoError(err)
		got <- value
	}()

	bus.mu.Lock()
	src.values = append(src.values, 10, 11)
	bus.mu.Unlock()
	bus.Notify()

	select {
	case value := <-got:
		assert.Equal(10, value)
	case <-time.After(TEST_TIMEOUT):
		require.Fail("read not woken by source")
	}

	// Writes go to sinks and do not make the bus readable.
	require.NoError(port.Write(ctx, 99))
	assert.Equal([]int{99}, rec.values)

	assert.True(port.Pending())
	assert.NoError(port.Sleep(ctx))
	value, err := port.Read(ctx)
	assert.NoError(err)
	assert.Equal(11, value)
	assert.False(port.Pending())

	// Cancellation still wins.
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = port.Read(cancelled)
	assert.ErrorIs(err, context.Canceled)
}
