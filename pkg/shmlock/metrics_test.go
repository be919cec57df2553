package shmlock

import (
	"testing"
	"unsafe"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	assert.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	assert.NoError(t, RegisterMetrics(reg))
	// Registering twice with the same registry is an error, not a panic.
	assert.Error(t, RegisterMetrics(reg))
}

func TestOperationCounters(t *testing.T) {
	// Counters are process-global, so observe deltas.
	readBefore := counterValue(t, readAcquired)
	writeBefore := counterValue(t, writeAcquired)
	refusedBefore := counterValue(t, refusals.WithLabelValues("read", "writelocked"))

	l, _ := newInitializedLock(t)
	assert.NoError(t, l.LockWrite())
	assert.ErrorIs(t, l.LockRead(), ErrWriteLocked)
	assert.NoError(t, l.UnlockWrite())
	assert.NoError(t, l.LockRead())
	assert.NoError(t, l.UnlockRead())

	assert.Equal(t, readBefore+1, counterValue(t, readAcquired))
	assert.Equal(t, writeBefore+1, counterValue(t, writeAcquired))
	assert.Equal(t, refusedBefore+1, counterValue(t, refusals.WithLabelValues("read", "writelocked")))
}

func TestRefusalCauses(t *testing.T) {
	word := new(uint32)
	l := AttachReset(unsafe.Pointer(word))

	uninitBefore := counterValue(t, refusals.WithLabelValues("write", "uninitialized"))
	assert.ErrorIs(t, l.LockWrite(), ErrUninitialized)
	assert.Equal(t, uninitBefore+1, counterValue(t, refusals.WithLabelValues("write", "uninitialized")))

	assert.Equal(t, "uninitialized", causeOf(ErrUninitialized))
	assert.Equal(t, "writelocked", causeOf(ErrWriteLocked))
	assert.Equal(t, "readlocked", causeOf(ErrReadLocked))
	assert.Equal(t, "maxreaders", causeOf(ErrMaxReaders))
	assert.Equal(t, "generalfailure", causeOf(ErrGeneralFailure))
	assert.Equal(t, "other", causeOf(ErrLockViolation))
}
