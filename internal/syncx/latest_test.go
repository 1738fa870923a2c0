package syncx

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLatestGetSet(t *testing.T) {
	l := NewLatest(42)

	if v, ver := l.Get(); v != 42 || ver != 0 {
		t.Errorf("Get() = %d, %d; want 42, 0", v, ver)
	}

	if ver := l.Set(100); ver != 1 {
		t.Errorf("Set() version = %d, want 1", ver)
	}
	if v, ver := l.Get(); v != 100 || ver != 1 {
		t.Errorf("Get() after Set = %d, %d; want 100, 1", v, ver)
	}
}

func TestLatestSwap(t *testing.T) {
	l := NewLatest("hello")

	old := l.Swap("world")
	if old != "hello" {
		t.Errorf("Swap returned %q, want %q", old, "hello")
	}
	if v, ver := l.Get(); v != "world" || ver != 1 {
		t.Errorf("Get() after Swap = %q, %d; want world, 1", v, ver)
	}
}

func TestLatestWaitReturnsNewerImmediately(t *testing.T) {
	l := NewLatest(0)
	l.Set(7)

	v, ver, err := l.Wait(context.Background(), 0)
	if err != nil || v != 7 || ver != 1 {
		t.Errorf("Wait() = %d, %d, %v; want 7, 1, nil", v, ver, err)
	}
}

func TestLatestWaitBlocksUntilSet(t *testing.T) {
	l := NewLatest("")
	got := make(chan string, 1)

	go func() {
		v, _, _ := l.Wait(context.Background(), 0)
		got <- v
	}()

	select {
	case v := <-got:
		t.Fatalf("Wait() returned %q before Set", v)
	case <-time.After(20 * time.Millisecond):
	}

	l.Set("frame")
	select {
	case v := <-got:
		if v != "frame" {
			t.Errorf("Wait() = %q, want frame", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not wake on Set")
	}
}

func TestLatestWaitCancelled(t *testing.T) {
	l := NewLatest(0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, ver, err := l.Wait(ctx, 0)
	if !errors.Is(err, context.DeadlineExceeded) || ver != 0 {
		t.Errorf("Wait() = %d, %v; want 0, deadline exceeded", ver, err)
	}
}

func TestLatestConcurrentAccess(t *testing.T) {
	l := NewLatest(0)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			l.Set(n)
		}(i)
		go func() {
			defer wg.Done()
			_, _ = l.Get()
		}()
	}

	wg.Wait()
	if _, ver := l.Get(); ver != 100 {
		t.Errorf("version = %d, want 100", ver)
	}
}
