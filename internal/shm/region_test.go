package shm

import (
	"path/filepath"
	"sync"
	"testing"
)

func TestCreateWriteAttachRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region")

	creator, err := Create(path, 64)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer creator.Destroy()

	creator.Lock()
	copy(creator.Bytes(), []byte("hello region"))
	creator.Unlock()

	attacher, err := Attach(path, 64)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	defer attacher.Detach()

	attacher.Lock()
	got := string(attacher.Bytes()[:len("hello region")])
	attacher.Unlock()

	if got != "hello region" {
		t.Errorf("expected attacher to observe creator's write, got %q", got)
	}
}

func TestLockExcludesConcurrentAccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region")
	r, err := Create(path, 8)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer r.Destroy()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Lock()
			counter++
			r.Unlock()
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("expected 100 serialized increments, got %d", counter)
	}
}

func TestCreateRejectsExistingPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region")
	r, err := Create(path, 8)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer r.Destroy()

	if _, err := Create(path, 8); err == nil {
		t.Fatal("expected error creating a region at an already-existing path")
	}
}
