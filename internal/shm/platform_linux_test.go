//go:build linux

package shm

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapRegionRoundTrip(t *testing.T) {
	ctx := context.Background()
	name := fmt.Sprintf("shm_platform_test_%d", os.Getpid())

	region, err := MapRegion(ctx, MapOptions{Name: name, Size: 4096, Create: true})
	assert.NoError(t, err)
	assert.Len(t, region.Addr, 4096)
	assert.True(t, region.Created())

	copy(region.Addr, "payload")

	// A second mapping of the same name observes the bytes.
	other, err := MapRegion(ctx, MapOptions{Name: name, Size: 4096, Create: false})
	assert.NoError(t, err)
	assert.Equal(t, "payload", string(other.Addr[:7]))
	assert.False(t, other.Created())

	assert.NoError(t, UnmapRegion(ctx, other))
	assert.NoError(t, UnmapRegion(ctx, region))
	assert.Equal(t, true, Unlink(region))
	assert.Equal(t, false, Unlink(region))
}

func TestMapRegionInvalidSize(t *testing.T) {
	_, err := MapRegion(context.Background(), MapOptions{Name: "x", Size: 0, Create: true})
	assert.Error(t, err)
}

func TestMapRegionMissing(t *testing.T) {
	_, err := MapRegion(context.Background(), MapOptions{
		Name:   fmt.Sprintf("shm_missing_%d", os.Getpid()),
		Size:   4096,
		Create: false,
	})
	assert.Error(t, err)
}

func TestUnmapRegionNil(t *testing.T) {
	assert.NoError(t, UnmapRegion(context.Background(), nil))
}
