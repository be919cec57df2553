package shmlock

import (
	"strings"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestDumpLockState(t *testing.T) {
	l, _ := newInitializedLock(t)

	dump := DumpLockState(l)
	assert.Contains(t, dump, "init:true")
	assert.Contains(t, dump, "write:false")
	assert.Contains(t, dump, "readers:0")

	assert.NoError(t, l.LockRead())
	assert.Contains(t, DumpLockState(l), "readers:1")
	assert.NoError(t, l.UnlockRead())

	assert.NoError(t, l.LockWrite())
	dump = DumpLockState(l)
	assert.Contains(t, dump, "write:true")
	assert.True(t, strings.Contains(dump, "shadow:0x80"))
	assert.NoError(t, l.UnlockWrite())
}

func TestDumpLockStateUninitialized(t *testing.T) {
	word := new(uint32)
	l := AttachReset(unsafe.Pointer(word))

	dump := DumpLockState(l)
	assert.Contains(t, dump, "init:false")
	assert.Contains(t, dump, "shadow:0xff")
}

func TestSetLogLevel(t *testing.T) {
	old := level
	defer SetLogLevel(old)

	SetLogLevel(levelNoPrint)
	assert.Equal(t, levelNoPrint, level)
	// Values beyond the range are ignored.
	SetLogLevel(levelNoPrint + 1)
	assert.Equal(t, levelNoPrint, level)
}
