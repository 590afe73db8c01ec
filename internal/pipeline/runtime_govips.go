//go:build govips && cgo

package pipeline

import (
	"errors"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
)

var vipsRuntime struct {
	mu      sync.Mutex
	running bool
	stopped bool
}

// Startup brings libvips up on first use. libvips cannot be restarted once
// shut down.
func Startup() error {
	vipsRuntime.mu.Lock()
	defer vipsRuntime.mu.Unlock()
	switch {
	case vipsRuntime.running:
		return nil
	case vipsRuntime.stopped:
		return errors.New("libvips was shut down and cannot be restarted")
	}

	vips.LoggingSettings(nil, vips.LogLevelWarning)
	// The converter fans batches out itself; one vips thread per image
	// avoids oversubscribing the CPU.
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheFiles:    0,
		MaxCacheMem:      64 << 20,
		MaxCacheSize:     50,
	})
	vipsRuntime.running = true
	return nil
}

func Shutdown() {
	vipsRuntime.mu.Lock()
	defer vipsRuntime.mu.Unlock()
	if !vipsRuntime.running {
		return
	}
	vips.Shutdown()
	vipsRuntime.running = false
	vipsRuntime.stopped = true
}

func Backend() string {
	return "libvips"
}

func newTransformer() (Transformer, error) {
	if err := Startup(); err != nil {
		return nil, err
	}
	return govipsTransformer{}, nil
}
