package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RecoveryAshes/depthcrawl/internal/models"
)

func requestWithPriority(url string, priority int) *models.Request {
	req := models.NewRequest(url)
	req.Priority = priority
	return req
}

func popURL(t *testing.T, f *Frontier) string {
	t.Helper()
	req, ok := f.Pop(context.Background())
	require.True(t, ok)
	f.Done()
	return req.URL
}

func TestFrontier_PriorityThenFIFO(t *testing.T) {
	f := NewFrontier()
	require.NoError(t, f.Push(requestWithPriority("https://example.com/low", -2)))
	require.NoError(t, f.Push(requestWithPriority("https://example.com/first", 0)))
	require.NoError(t, f.Push(requestWithPriority("https://example.com/high", 3)))
	require.NoError(t, f.Push(requestWithPriority("https://example.com/second", 0)))

	assert.Equal(t, 4, f.Len())
	assert.Equal(t, "https://example.com/high", popURL(t, f))
	assert.Equal(t, "https://example.com/first", popURL(t, f))
	assert.Equal(t, "https://example.com/second", popURL(t, f))
	assert.Equal(t, "https://example.com/low", popURL(t, f))
	assert.Equal(t, 0, f.Len())
}

func TestFrontier_PopReturnsFalseWhenDrained(t *testing.T) {
	f := NewFrontier()
	_, ok := f.Pop(context.Background())
	assert.False(t, ok)
}

func TestFrontier_PopWaitsForInflight(t *testing.T) {
	f := NewFrontier()
	require.NoError(t, f.Push(models.NewRequest("https://example.com/")))

	_, ok := f.Pop(context.Background())
	require.True(t, ok)

	got := make(chan string, 1)
	go func() {
		req, ok := f.Pop(context.Background())
		if !ok {
			got <- ""
			return
		}
		got <- req.URL
	}()

	select {
	case <-got:
		t.Fatal("Pop 不应在有请求处理中时返回")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, f.Push(models.NewRequest("https://example.com/next")))
	f.Done()

	select {
	case url := <-got:
		assert.Equal(t, "https://example.com/next", url)
	case <-time.After(time.Second):
		t.Fatal("Pop 没有被唤醒")
	}
}

func TestFrontier_DoneWakesWaitersWhenDrained(t *testing.T) {
	f := NewFrontier()
	require.NoError(t, f.Push(models.NewRequest("https://example.com/")))
	_, ok := f.Pop(context.Background())
	require.True(t, ok)

	done := make(chan bool, 1)
	go func() {
		_, ok := f.Pop(context.Background())
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	f.Done()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Pop 没有被唤醒")
	}
}

func TestFrontier_Close(t *testing.T) {
	f := NewFrontier()
	require.NoError(t, f.Push(models.NewRequest("https://example.com/")))
	f.Close()

	_, ok := f.Pop(context.Background())
	assert.False(t, ok)
	assert.Error(t, f.Push(models.NewRequest("https://example.com/late")))
}

func TestFrontier_ContextCancelWakesWaiters(t *testing.T) {
	f := NewFrontier()
	require.NoError(t, f.Push(models.NewRequest("https://example.com/")))
	_, ok := f.Pop(context.Background())
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	stop := context.AfterFunc(ctx, f.Close)
	defer stop()

	done := make(chan bool, 1)
	go func() {
		_, ok := f.Pop(ctx)
		done <- ok
	}()

	cancel()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Pop 没有被唤醒")
	}
}
