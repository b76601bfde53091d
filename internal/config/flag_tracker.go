package config

import (
	"sync"

	"github.com/spf13/pflag"
)

// FlagTracker records which command line flags were set explicitly, so that
// only those override values from the configuration file.
type FlagTracker struct {
	mu    sync.RWMutex
	flags map[string]bool
}

// NewFlagTracker creates an empty tracker
func NewFlagTracker() *FlagTracker {
	return &FlagTracker{flags: make(map[string]bool)}
}

// TrackFlagSet creates a tracker holding every flag changed in fs
func TrackFlagSet(fs *pflag.FlagSet) *FlagTracker {
	ft := NewFlagTracker()
	if fs != nil {
		fs.Visit(func(f *pflag.Flag) {
			ft.Set(f.Name)
		})
	}
	return ft
}

// Set marks a flag as explicitly set
func (ft *FlagTracker) Set(flagName string) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.flags[flagName] = true
}

// WasSet checks if a flag was explicitly set
func (ft *FlagTracker) WasSet(flagName string) bool {
	ft.mu.RLock()
	defer ft.mu.RUnlock()
	return ft.flags[flagName]
}

// Count returns the number of explicitly set flags
func (ft *FlagTracker) Count() int {
	ft.mu.RLock()
	defer ft.mu.RUnlock()
	return len(ft.flags)
}

// Override returns override when flagName was set explicitly, base otherwise
func Override[T any](ft *FlagTracker, base, override T, flagName string) T {
	if ft != nil && ft.WasSet(flagName) {
		return override
	}
	return base
}
