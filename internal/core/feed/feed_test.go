package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe_ReplaysCurrentValue(t *testing.T) {
	f := New(1)
	f.Publish(2)

	var got []int
	f.Subscribe(func(v int) { got = append(got, v) })
	f.Publish(3)
	f.Publish(4)

	assert.Equal(t, []int{2, 3, 4}, got)
	assert.Equal(t, 4, f.Value())
}

func TestPublish_DeliversInSubscriptionOrder(t *testing.T) {
	f := New("")
	var order []string
	f.Subscribe(func(v string) { order = append(order, "a:"+v) })
	f.Subscribe(func(v string) { order = append(order, "b:"+v) })

	f.Publish("x")

	assert.Equal(t, []string{"a:", "b:", "a:x", "b:x"}, order)
}

func TestCancel_StopsDelivery(t *testing.T) {
	f := New(0)
	calls := 0
	cancel := f.Subscribe(func(int) { calls++ })
	require.Equal(t, 1, f.Subscribers())

	cancel()
	cancel()
	f.Publish(1)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, f.Subscribers())
}

func TestMap_RecomputesOnEveryPublish(t *testing.T) {
	src := New([]int{1, 2})
	sum := Map(src, func(xs []int) int {
		n := 0
		for _, x := range xs {
			n += x
		}
		return n
	})
	require.Equal(t, 3, sum.Value())

	var seen []int
	sum.Subscribe(func(v int) { seen = append(seen, v) })
	src.Publish([]int{5})
	src.Publish([]int{5})

	assert.Equal(t, []int{3, 5, 5}, seen)
}

func TestWatch_DeliversLatestAndStopsOnCancel(t *testing.T) {
	f := New(0)
	ctx, cancel := context.WithCancel(context.Background())
	ch := f.Watch(ctx)

	assert.Equal(t, 0, receive(t, ch))

	f.Publish(1)
	f.Publish(2)
	// 1 may or may not be skipped, 2 always arrives
	v := receive(t, ch)
	if v == 1 {
		v = receive(t, ch)
	}
	assert.Equal(t, 2, v)

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			// a value may still be in flight; the channel must close next
			_, ok = <-ch
		}
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed")
	}
	assert.Eventually(t, func() bool { return f.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
}

func receive(t *testing.T, ch <-chan int) int {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
		return 0
	}
}

func TestWithCopy_ReadersCannotWriteBack(t *testing.T) {
	clone := func(v []int) []int { return append([]int(nil), v...) }
	f := New([]int{1, 2}, WithCopy(clone))

	var got []int
	cancel := f.Subscribe(func(v []int) {
		got = v
		v[0] = 100
	})
	defer cancel()

	v := f.Value()
	v[1] = 200
	assert.Equal(t, []int{1, 2}, f.Value())

	f.Publish([]int{3})
	got[0] = 300
	assert.Equal(t, []int{3}, f.Value())
}
