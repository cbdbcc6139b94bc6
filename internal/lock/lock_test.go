package lock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	kbPath := filepath.Join(t.TempDir(), "kb.tsv")

	l, err := Acquire(context.Background(), kbPath, time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := os.Stat(kbPath + ".lock"); err != nil {
		t.Errorf("lock sidecar missing: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	// Released locks are immediately reacquirable.
	l2, err := Acquire(context.Background(), kbPath, time.Second)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if err := l2.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}

func TestAcquire_Timeout(t *testing.T) {
	kbPath := filepath.Join(t.TempDir(), "kb.tsv")

	held, err := Acquire(context.Background(), kbPath, time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer func() { _ = held.Release() }()

	start := time.Now()
	_, err = Acquire(context.Background(), kbPath, 300*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
		t.Errorf("timed out after %v, want a bounded wait of at least 300ms", elapsed)
	}
}

func TestAcquire_ContextCanceled(t *testing.T) {
	kbPath := filepath.Join(t.TempDir(), "kb.tsv")

	held, err := Acquire(context.Background(), kbPath, time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer func() { _ = held.Release() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Acquire(ctx, kbPath, 10*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRelease_Nil(t *testing.T) {
	var l *Lock
	if err := l.Release(); err != nil {
		t.Errorf("nil Release: %v", err)
	}
	l = &Lock{}
	if err := l.Release(); err != nil {
		t.Errorf("empty Release: %v", err)
	}
}
