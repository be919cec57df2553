package shmlock

import (
	"context"
	"fmt"
	"unsafe"

	cmap "github.com/orcaman/concurrent-map/v2"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	internalshm "github.com/srediag/shm-rwlock/internal/shm"
)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// Dir overrides the backing directory for named regions. Defaults to
	// /dev/shm on Linux.
	Dir string
	// Meter and Tracer enable OpenTelemetry instrumentation of region
	// lifecycle operations. Both are optional.
	Meter  metric.Meter
	Tracer trace.Tracer
}

// LockedRegion couples a mapped shared memory region with the lock guarding
// its payload. The lock word occupies the first LockSize bytes; the payload
// is everything after it.
type LockedRegion struct {
	Name string

	lock   *RWLock
	region *internalshm.MappedRegion
}

// Lock returns the region's lock.
func (lr *LockedRegion) Lock() *RWLock {
	return lr.lock
}

// Payload returns the protected bytes behind the lock word. Callers must
// hold the appropriate lock while touching them.
func (lr *LockedRegion) Payload() []byte {
	return lr.region.Addr[LockSize:]
}

// Close unmaps the region and, when this process created it, removes the
// backing file. The lock instance becomes invalid; locks held by other
// processes over the same bytes are unaffected.
func (lr *LockedRegion) Close(ctx context.Context) error {
	if lr.lock.Locked() {
		internalLogger.warnf("closing region %s with locks still held locally", lr.Name)
	}
	if err := internalshm.UnmapRegion(ctx, lr.region); err != nil {
		internalLogger.warnf("region %s unmap error: %v", lr.Name, err)
		return err
	}
	if lr.region.Created() {
		if internalshm.Unlink(lr.region) {
			internalLogger.infof("removed region file %s", lr.Name)
		}
	}
	return nil
}

// Registry is the collaborator that owns region mapping for named locks: it
// maps shared memory by name, places a lock over the region's first word,
// and hands the core lock a stable, valid, aligned address for the region's
// lifetime. The core lock itself never maps anything.
type Registry struct {
	opts    RegistryOptions
	regions cmap.ConcurrentMap[string, *LockedRegion]

	attached metric.Int64Counter
}

// NewRegistry builds an empty registry.
func NewRegistry(opts RegistryOptions) *Registry {
	g := &Registry{
		opts:    opts,
		regions: cmap.New[*LockedRegion](),
	}
	if opts.Meter != nil {
		if c, err := opts.Meter.Int64Counter("shmlock.regions.attached"); err == nil {
			g.attached = c
		}
	}
	return g
}

// Open maps the named region and returns it with its lock. With create set,
// the region is created (or truncated to size), its lock word reset to the
// uninitialized sentinel, and then initialized; the caller asserts that no
// other process holds locks over it. Without create, the region must exist
// and its lock state is attached as-is.
//
// Open is idempotent per name: a region already opened through this
// registry is returned unchanged.
func (g *Registry) Open(ctx context.Context, name string, size int, create bool) (*LockedRegion, error) {
	if g.opts.Tracer != nil {
		var span trace.Span
		ctx, span = g.opts.Tracer.Start(ctx, "shmlock.Registry.Open")
		defer span.End()
	}
	if size < LockSize {
		return nil, fmt.Errorf("shmlock: region size %d smaller than lock word", size)
	}
	if existing, ok := g.regions.Get(name); ok {
		return existing, nil
	}
	region, err := internalshm.MapRegion(ctx, internalshm.MapOptions{
		Name:   name,
		Size:   size,
		Create: create,
		Dir:    g.opts.Dir,
	})
	if err != nil {
		return nil, fmt.Errorf("shmlock: map region %s: %w", name, err)
	}
	var lock *RWLock
	if create {
		lock = AttachReset(unsafe.Pointer(&region.Addr[0]))
		lock.Initialize()
	} else {
		lock = AttachBytes(region.Addr)
	}
	lr := &LockedRegion{Name: name, lock: lock, region: region}
	if !g.regions.SetIfAbsent(name, lr) {
		// Lost a racing Open for the same name; keep the winner's mapping.
		_ = internalshm.UnmapRegion(ctx, region)
		existing, _ := g.regions.Get(name)
		return existing, nil
	}
	if g.attached != nil {
		g.attached.Add(ctx, 1)
	}
	internalLogger.debugf("opened region %s size %d create %v", name, size, create)
	return lr, nil
}

// Get returns the region previously opened under name.
func (g *Registry) Get(name string) (*LockedRegion, bool) {
	return g.regions.Get(name)
}

// Close removes the named region from the registry and closes it.
func (g *Registry) Close(ctx context.Context, name string) error {
	lr, ok := g.regions.Pop(name)
	if !ok {
		return nil
	}
	return lr.Close(ctx)
}

// CloseAll closes every region in the registry, returning the first error.
func (g *Registry) CloseAll(ctx context.Context) error {
	var first error
	for _, name := range g.regions.Keys() {
		if err := g.Close(ctx, name); err != nil && first == nil {
			first = err
		}
	}
	return first
}
