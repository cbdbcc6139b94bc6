package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if err := c.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, found := c.Get("k")
	if !found || !bytes.Equal(val, []byte("v")) {
		t.Fatalf("Get = %q,%v", val, found)
	}

	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("entry survived Delete")
	}

	_ = c.Set("a", []byte("1"), time.Minute)
	_ = c.Set("b", []byte("2"), time.Minute)
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, found := c.Get("a"); found {
		t.Error("entry survived Clear")
	}
}

func TestDiskCache(t *testing.T) {
	c := NewDiskCache(filepath.Join(t.TempDir(), "cache"), time.Minute)

	if err := c.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, found := c.Get("k")
	if !found || !bytes.Equal(val, []byte("v")) {
		t.Fatalf("Get = %q,%v", val, found)
	}

	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("entry survived Delete")
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(filepath.Join(t.TempDir(), "cache"), time.Minute)

	if err := c.Set("k", []byte("v"), time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, found := c.Get("k"); found {
		t.Error("expired entry still served")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c := NewLayeredCache(time.Minute, dir, time.Minute)

	// Seed only the disk tier, simulating a fresh process with a warm disk.
	if err := c.disk.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("disk Set: %v", err)
	}
	if _, found := c.memory.Get("k"); found {
		t.Fatal("memory tier unexpectedly warm")
	}

	val, found := c.Get("k")
	if !found || !bytes.Equal(val, []byte("v")) {
		t.Fatalf("Get = %q,%v", val, found)
	}
	if _, found := c.memory.Get("k"); !found {
		t.Error("disk hit not promoted to memory")
	}
}

func TestLayeredCache_SetAndClear(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c := NewLayeredCache(time.Minute, dir, time.Minute)

	if err := c.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, found := c.disk.Get("k"); !found {
		t.Error("Set skipped the disk tier")
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("entry survived Clear")
	}
}

func TestFileKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.tsv")
	if err := os.WriteFile(path, []byte("Ada\t80\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	k1, err := FileKey(path)
	if err != nil {
		t.Fatalf("FileKey: %v", err)
	}
	k2, err := FileKey(path)
	if err != nil {
		t.Fatalf("FileKey: %v", err)
	}
	if k1 != k2 {
		t.Error("key unstable for an unchanged file")
	}

	if err := os.WriteFile(path, []byte("Ada\t80\nBob\t40\n"), 0644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	k3, err := FileKey(path)
	if err != nil {
		t.Fatalf("FileKey: %v", err)
	}
	if k3 == k1 {
		t.Error("key unchanged after the file changed")
	}

	if _, err := FileKey(filepath.Join(dir, "missing.tsv")); err == nil {
		t.Error("expected error for a missing file")
	}
}
