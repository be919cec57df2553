package shmlock

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unsafe"

	"github.com/cenkalti/backoff/v4"
	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

// lockReadRetry keeps trying until the read lock commits. Only contention
// refusals are retried; anything else is a test failure.
func lockReadRetry(l *RWLock) error {
	for {
		err := l.LockRead()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrMaxReaders) && !errors.Is(err, ErrWriteLocked) {
			return err
		}
	}
}

func unlockReadRetry(l *RWLock) error {
	for {
		err := l.UnlockRead()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrMaxReaders) {
			return err
		}
	}
}

func TestConcurrentReadersOnOneInstance(t *testing.T) {
	l, word := newInitializedLock(t)

	pool, err := ants.NewPool(8)
	assert.NoError(t, err)
	defer pool.Release()

	const tasks = 200
	var wg sync.WaitGroup
	var failures atomic.Int64
	wg.Add(tasks)
	for i := 0; i < tasks; i++ {
		err := pool.Submit(func() {
			defer wg.Done()
			if err := lockReadRetry(l); err != nil {
				failures.Add(1)
				return
			}
			if err := unlockReadRetry(l); err != nil {
				failures.Add(1)
			}
		})
		assert.NoError(t, err)
	}
	wg.Wait()

	assert.Equal(t, int64(0), failures.Load())
	assert.Equal(t, uint32(0), atomic.LoadUint32(word))
	assert.Equal(t, uint32(0), atomic.LoadUint32(&l.held))
}

func TestWriterExclusionAcrossInstances(t *testing.T) {
	word := new(uint32)
	creator := AttachReset(unsafe.Pointer(word))
	creator.Initialize()

	const readers = 4
	var g errgroup.Group
	stop := make(chan struct{})

	for i := 0; i < readers; i++ {
		// Every reader gets its own instance over the same word, as
		// separate processes would.
		r := Attach(unsafe.Pointer(word))
		g.Go(func() error {
			for {
				select {
				case <-stop:
					return nil
				default:
				}
				if err := lockReadRetry(r); err != nil {
					return err
				}
				if err := unlockReadRetry(r); err != nil {
					return err
				}
			}
		})
	}

	w := Attach(unsafe.Pointer(word))
	g.Go(func() error {
		defer close(stop)
		wins := 0
		for wins < 25 {
			err := w.LockWrite()
			if err != nil {
				if errors.Is(err, ErrReadLocked) || errors.Is(err, ErrWriteLocked) ||
					errors.Is(err, ErrGeneralFailure) {
					continue
				}
				return err
			}
			// Exclusivity: a committed write lock coexists with no readers.
			cur := atomic.LoadUint32(word)
			if cur&ReadLockMask != 0 {
				return errors.New("write lock held with readers present")
			}
			if cur&WriteLockMask == 0 {
				return errors.New("write lock committed without the flag set")
			}
			if err := w.UnlockWrite(); err != nil {
				return err
			}
			wins++
		}
		return nil
	})

	assert.NoError(t, g.Wait())
	assert.Equal(t, uint32(0), atomic.LoadUint32(word))
}

func TestSpinWaitWithBackoff(t *testing.T) {
	word := new(uint32)
	holder := AttachReset(unsafe.Pointer(word))
	holder.Initialize()
	assert.NoError(t, holder.LockWrite())

	released := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		if err := holder.UnlockWrite(); err == nil {
			close(released)
		}
	}()

	waiter := Attach(unsafe.Pointer(word))
	var tries uint64
	wait := func() error {
		again, err := waiter.Spin(&tries)
		if err != nil {
			return backoff.Permanent(err)
		}
		if again {
			return errors.New("still locked")
		}
		return nil
	}
	err := backoff.Retry(wait, backoff.WithMaxRetries(backoff.NewConstantBackOff(5*time.Millisecond), 100))
	assert.NoError(t, err)
	assert.Greater(t, tries, uint64(0))

	<-released
	assert.NoError(t, waiter.LockWrite())
	assert.NoError(t, waiter.UnlockWrite())
}
