package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestGetCachesResult(t *testing.T) {
	cache := NewCache(nil, nil)

	var calls int32
	q := New(cache, "k", func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 42, nil
	})

	for i := 0; i < 3; i++ {
		v, err := q.Get(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if v != 42 {
			t.Fatalf("got %d, want 42", v)
		}
	}
	if calls != 1 {
		t.Fatalf("fetch ran %d times, want 1", calls)
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	cache := NewCache(nil, nil)

	var calls int32
	q := New(cache, "k", func(ctx context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	})

	if v, _ := q.Get(context.Background()); v != 1 {
		t.Fatalf("first read = %d, want 1", v)
	}
	cache.Invalidate("k")
	if v, _ := q.Get(context.Background()); v != 2 {
		t.Fatalf("read after invalidate = %d, want 2", v)
	}
}

func TestDisabledServesDefault(t *testing.T) {
	cache := NewCache(nil, nil)

	q := New(cache, "k", func(ctx context.Context) ([]string, error) {
		t.Fatal("fetch must not run while disabled")
		return nil, nil
	}).WithDefault([]string{})
	q.SetEnabled(false)

	v, err := q.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v == nil || len(v) != 0 {
		t.Fatalf("got %v, want empty default", v)
	}
}

func TestEnableTransitionInvalidates(t *testing.T) {
	cache := NewCache(nil, nil)

	var calls int32
	q := New(cache, "k", func(ctx context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	})

	if _, err := q.Get(context.Background()); err != nil {
		t.Fatal(err)
	}

	q.SetEnabled(false)
	q.SetEnabled(true)

	if v, _ := q.Get(context.Background()); v != 2 {
		t.Fatalf("read after re-enable = %d, want a fresh fetch", v)
	}
}

func TestErrorReturnsDefault(t *testing.T) {
	cache := NewCache(nil, nil)

	boom := errors.New("backend down")
	q := New(cache, "k", func(ctx context.Context) ([]int, error) {
		return nil, boom
	}).WithDefault([]int{})

	v, err := q.Get(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if v == nil {
		t.Fatal("want the default on error, got nil")
	}
}

func TestConcurrentReadersShareOneFetch(t *testing.T) {
	cache := NewCache(nil, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	q := New(cache, "k", func(ctx context.Context) (int, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-release
		}
		return 7, nil
	})

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := q.Get(context.Background())
			if err != nil {
				t.Error(err)
			}
			results[i] = v
		}(i)
	}

	<-started
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Fatalf("fetch ran %d times, want 1", calls)
	}
	for _, v := range results {
		if v != 7 {
			t.Fatalf("reader got %d, want 7", v)
		}
	}
}

func TestDropRemovesEntry(t *testing.T) {
	cache := NewCache(nil, nil)

	var calls int32
	q := New(cache, "k", func(ctx context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	})

	if _, err := q.Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	cache.Drop("k")
	if v, _ := q.Get(context.Background()); v != 2 {
		t.Fatalf("read after drop = %d, want 2", v)
	}
}
