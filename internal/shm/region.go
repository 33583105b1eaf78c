// Package shm implements a shared memory region usable for cross-process
// coordination, backed by an mmap'd file. golang.org/x/sys/unix exposes
// the mmap syscalls Go's standard library does not.
package shm

import (
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/cogmesh/atomspace/internal/cogerr"
)

// DefaultSize is the default region size (1 MiB), matching a typical
// SysV shared-memory segment default.
const DefaultSize = 1 << 20

// lockHeaderSize is the spinlock word at the front of the mapping. An
// mmap'd MAP_SHARED region is visible across process boundaries, but Go's
// sync.Mutex is not inter-process-safe, so the lock is a manually managed
// atomic word instead.
const lockHeaderSize = 8

const (
	unlocked int32 = 0
	locked   int32 = 1
)

// Region is a shared memory segment: a lock word followed by a data area,
// both reachable by any process that Attach-es the same backing path.
type Region struct {
	path string
	file *os.File
	data []byte // full mapping, including the lock header
	size int     // data area size, excluding the header
	own  bool    // true if this Region created the backing file
}

// Create allocates a new backing file of the given data size (header
// space is added on top) and maps it MAP_SHARED, ready for use by this
// process and any other that Attaches the same path.
func Create(path string, size int) (*Region, error) {
	if size <= 0 {
		size = DefaultSize
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, cogerr.Wrap(cogerr.OsResource, err, "shm: create backing file %s", path)
	}
	total := lockHeaderSize + size
	if err := f.Truncate(int64(total)); err != nil {
		f.Close()
		os.Remove(path)
		return nil, cogerr.Wrap(cogerr.OsResource, err, "shm: truncate backing file %s", path)
	}
	return mapFile(path, f, size, true)
}

// Attach maps an existing region created by another process (or an earlier
// call in this one) via Create.
func Attach(path string, size int) (*Region, error) {
	if size <= 0 {
		size = DefaultSize
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, cogerr.Wrap(cogerr.OsResource, err, "shm: attach to backing file %s", path)
	}
	return mapFile(path, f, size, false)
}

func mapFile(path string, f *os.File, size int, own bool) (*Region, error) {
	total := lockHeaderSize + size
	data, err := unix.Mmap(int(f.Fd()), 0, total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		if own {
			os.Remove(path)
		}
		return nil, cogerr.Wrap(cogerr.OsResource, err, "shm: mmap %s", path)
	}
	return &Region{path: path, file: f, data: data, size: size, own: own}, nil
}

func (r *Region) lockWord() *int32 {
	return (*int32)(unsafe.Pointer(&r.data[0]))
}

// Lock spins until it acquires the region's cross-process lock.
func (r *Region) Lock() {
	word := r.lockWord()
	for !atomic.CompareAndSwapInt32(word, unlocked, locked) {
		unix.Sched_yield()
	}
}

// TryLock attempts to acquire the lock without blocking.
func (r *Region) TryLock() bool {
	return atomic.CompareAndSwapInt32(r.lockWord(), unlocked, locked)
}

// Unlock releases the region's cross-process lock. Unlocking an unlocked
// region is a caller error but is not itself checked here.
func (r *Region) Unlock() {
	atomic.StoreInt32(r.lockWord(), unlocked)
}

// Bytes returns the data area (excluding the lock header). Callers must
// hold the lock for any access that must be consistent with other
// processes.
func (r *Region) Bytes() []byte {
	return r.data[lockHeaderSize:]
}

// Size reports the data area size in bytes.
func (r *Region) Size() int { return r.size }

// Detach unmaps the region in this process without removing the backing
// file, leaving it available for other attachers.
func (r *Region) Detach() error {
	if err := unix.Munmap(r.data); err != nil {
		return cogerr.Wrap(cogerr.OsResource, err, "shm: munmap %s", r.path)
	}
	return r.file.Close()
}

// Destroy detaches and removes the backing file. Only the creating
// process should normally call this.
func (r *Region) Destroy() error {
	if err := r.Detach(); err != nil {
		return err
	}
	if r.own {
		if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
			return cogerr.Wrap(cogerr.OsResource, err, "shm: remove backing file %s", r.path)
		}
	}
	return nil
}
