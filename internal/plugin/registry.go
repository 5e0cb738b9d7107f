// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FrameKit Contributors

package plugin

import (
	"regexp"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
)

// maxNameLength is the maximum allowed length for plugin names.
const maxNameLength = 64

// namePattern validates plugin names: must start with a lowercase letter,
// followed by lowercase letters, digits, or hyphens. Cannot end with a
// hyphen. Single character names are allowed.
var namePattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

// registration wraps a plugin with runner-owned bookkeeping.
type registration struct {
	plugin        Plugin
	preloadFailed bool
}

// Registry is an ordered collection of registered plugins. Plugins are
// kept sorted ascending by priority; equal priorities preserve
// registration order. Registration happens at composition time; the only
// later mutation is the runner dropping preload failures between the
// preload and init phases.
type Registry struct {
	mu     sync.RWMutex
	regs   []*registration
	failed map[string]error
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{failed: make(map[string]error)}
}

// Use registers a plugin, inserting it by ascending priority.
func (r *Registry) Use(p Plugin) error {
	if err := validate(p); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lookup(p.Name()) != nil {
		return oops.Code("PLUGIN_DUPLICATE").
			With("plugin", p.Name()).
			Errorf("plugin %q already registered", p.Name())
	}

	// Insert after the last entry with priority <= p's, keeping the
	// ascending order stable for equal priorities.
	idx := len(r.regs)
	for i, reg := range r.regs {
		if reg.plugin.Priority() > p.Priority() {
			idx = i
			break
		}
	}
	r.regs = append(r.regs, nil)
	copy(r.regs[idx+1:], r.regs[idx:])
	r.regs[idx] = &registration{plugin: p}

	return nil
}

// Get returns the registered plugin with the given name. Plugins dropped
// by a preload failure are not found.
func (r *Registry) Get(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if reg := r.lookup(name); reg != nil {
		return reg.plugin, true
	}
	return nil, false
}

// Plugins returns a snapshot of the registered plugins in priority order.
func (r *Registry) Plugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Plugin, len(r.regs))
	for i, reg := range r.regs {
		out[i] = reg.plugin
	}
	return out
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.regs)
}

// PreloadFailure reports whether the named plugin was dropped by a
// preload failure, and the error that dropped it.
func (r *Registry) PreloadFailure(name string) (error, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	err, ok := r.failed[name]
	return err, ok
}

// markPreloadFailed flags a plugin as failed during preload. Called only
// by the runner, between the preload and init phases.
func (r *Registry) markPreloadFailed(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if reg := r.lookup(name); reg != nil {
		reg.preloadFailed = true
		r.failed[name] = err
	}
}

// dropFailed permanently removes every flagged plugin.
func (r *Registry) dropFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.regs[:0]
	for _, reg := range r.regs {
		if !reg.preloadFailed {
			kept = append(kept, reg)
		}
	}
	r.regs = kept
}

// lookup finds a registration by name. Caller holds r.mu.
func (r *Registry) lookup(name string) *registration {
	for _, reg := range r.regs {
		if reg.plugin.Name() == name {
			return reg
		}
	}
	return nil
}

// validate checks plugin registration constraints.
func validate(p Plugin) error {
	name := p.Name()
	if name == "" || !namePattern.MatchString(name) {
		return oops.Code("PLUGIN_INVALID_NAME").
			With("plugin", name).
			Errorf("name %q must start with a-z, contain only a-z, 0-9, hyphens, and not end with a hyphen", name)
	}
	if len(name) > maxNameLength {
		return oops.Code("PLUGIN_INVALID_NAME").
			With("plugin", name).
			Errorf("name must be %d characters or less, got %d", maxNameLength, len(name))
	}
	if _, err := semver.NewVersion(p.Version()); err != nil {
		return oops.Code("PLUGIN_INVALID_VERSION").
			With("plugin", name).
			With("version", p.Version()).
			Wrap(err)
	}
	return nil
}
