// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of revolve-go.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package profiler accumulates per-(section, action) timing and count
// statistics for one sweep, grounded on
// original_source/pyrevolve/profiling.py's Profiler/Timer pair.
// Persistence (store.go) is an expansion beyond the Python original.
package profiler

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Profiler is the driver.Recorder every Revolver wraps its
// operator/storage calls with. The Python original notes it is "not
// thread safe"; this port adds a mutex since nothing about the
// (section, action) accumulation pattern requires single-threaded use.
type Profiler struct {
	mu      sync.Mutex
	timings map[string]map[string]time.Duration
	counts  map[string]map[string]uint64
}

// New returns an empty Profiler.
func New() *Profiler {
	return &Profiler{
		timings: make(map[string]map[string]time.Duration),
		counts:  make(map[string]map[string]uint64),
	}
}

// Time runs fn, recording its wall-clock duration under
// (section, action) regardless of whether fn errors — matching
// Timer.__exit__, which records on every exit path.
func (p *Profiler) Time(section, action string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.record(section, action, time.Since(start))
	return err
}

func (p *Profiler) record(section, action string, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timings[section] == nil {
		p.timings[section] = make(map[string]time.Duration)
		p.counts[section] = make(map[string]uint64)
	}
	p.timings[section][action] += elapsed
	p.counts[section][action]++
}

// Entry is one flattened (section, action) accumulator, the unit
// Store persists.
type Entry struct {
	Section string
	Action  string
	Elapsed time.Duration
	Count   uint64
}

// Snapshot returns every accumulated entry, sorted for deterministic
// output, matching get_dict()'s flattening of the nested timing/count
// maps.
func (p *Profiler) Snapshot() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()

	var entries []Entry
	for section, actions := range p.timings {
		for action, elapsed := range actions {
			entries = append(entries, Entry{
				Section: section,
				Action:  action,
				Elapsed: elapsed,
				Count:   p.counts[section][action],
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Section != entries[j].Section {
			return entries[i].Section < entries[j].Section
		}
		return entries[i].Action < entries[j].Action
	})
	return entries
}

// Summary renders a human-readable dump, matching
// Profiler.summary()'s layout.
func (p *Profiler) Summary() string {
	out := "****************"
	for _, e := range p.Snapshot() {
		out += fmt.Sprintf("\nIn section %s:\n\tAction %s: %s (%d)", e.Section, e.Action, e.Elapsed, e.Count)
	}
	out += "\n****************"
	return out
}
