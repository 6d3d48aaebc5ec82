// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package controller

import (
	"github.com/grailbio/tgv/internal/align"
	"github.com/grailbio/tgv/internal/annotation"
)

// issueFetchesLocked pins the new window interval on all three providers
// (exempting it from eviction) and spawns one background fetch per
// provider, each tagged with the current generation. Callers must hold
// c.mu; the spawned goroutines do not touch controller state directly --
// they only post to the completion queue (spec §5: "fetch workers produce
// results but do not mutate the cache directly").
func (c *Controller) issueFetchesLocked() {
	iv := c.state.Window.Interval()
	gen := c.generation
	c.lastIssuedIv = iv

	c.ref.Pin(iv)
	c.align.Pin(iv)
	c.annotation.Pin(iv)

	c.spawn(func() {
		bases, err := c.ref.Fetch(iv)
		c.completions.push(completion{kind: kindRef, generation: gen, iv: iv, payload: bases, err: err})
	})
	c.spawn(func() {
		feats, err := c.annotation.FeaturesIn(iv)
		c.completions.push(completion{kind: kindFeatures, generation: gen, iv: iv, payload: feats, err: err})
	})
	c.spawn(func() {
		reads, err := c.align.Fetch(iv)
		c.completions.push(completion{kind: kindReads, generation: gen, iv: iv, payload: reads, err: err})
	})
}

// spawn runs fn on c.executor if one was supplied to New, otherwise on a
// bare goroutine (spec §5: "one shared task executor for I/O-bound provider
// fetches").
func (c *Controller) spawn(fn func()) {
	if c.executor != nil {
		c.executor(fn)
		return
	}
	go fn()
}

// DrainCompletions applies every queued fetch completion and returns the
// resulting state (spec §5: "the event loop drains the queue at frame
// boundaries"). The host calls this once per frame.
func (c *Controller) DrainCompletions() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, comp := range c.completions.drain() {
		c.applyCompletionLocked(comp)
	}
	return c.state
}

// applyCompletionLocked discards stale completions (wrong generation, or a
// window change raced ahead of this fetch -- spec §5 "a completion whose
// generation differs from current is discarded") and otherwise updates the
// snapshot or routes the error per spec §7.
//
// Per-kind merge-vs-overwrite of overlapping same-generation entries is
// delegated entirely to regioncache.Cache's entry merging inside the
// Caching* providers (see DESIGN.md); at this layer there is exactly one
// interval of interest at a time (the current window), so "apply iff it
// matches what we last asked for" is the faithful reduction of spec §5's
// merge rule to a single-target-window controller.
func (c *Controller) applyCompletionLocked(comp completion) {
	if comp.generation != c.generation || comp.iv != c.lastIssuedIv {
		return
	}
	if comp.err != nil {
		c.applyProviderErrorLocked(comp.kind, comp.err)
		return
	}
	if c.state.Mode == ModeError && c.lastErrorKind == KindDataSourceUnavailable && c.lastErrorSource == comp.kind {
		// The specific provider that was unavailable just succeeded: leave
		// Error mode. CacheCorruption/Internal are not cleared this way
		// (spec §7: "disable the affected track until restart"), and an
		// unrelated provider's success doesn't paper over this one's
		// outage.
		c.state.Mode = ModeNormal
		c.state.ErrorMessage = ""
		c.retry.reset()
	}
	switch comp.kind {
	case kindRef:
		c.snapshot.RefBases, _ = comp.payload.([]byte)
		c.snapshot.RefInterval = comp.iv
	case kindFeatures:
		c.snapshot.Features, _ = comp.payload.([]annotation.Feature)
		c.snapshot.FeaturesInterval = comp.iv
	case kindReads:
		c.snapshot.Reads, _ = comp.payload.([]align.Read)
		c.snapshot.ReadsInterval = comp.iv
	}
}

// applyProviderErrorLocked routes a provider error per spec §7: recoverable
// kinds set StatusMessage and preserve mode; the rest enter Error mode
// (cached data keeps rendering underneath it) and, for
// DataSourceUnavailable, schedule a backoff retry.
func (c *Controller) applyProviderErrorLocked(source kind, err error) {
	k := Classify(err)
	if k.recoverable() {
		c.state.StatusMessage = err.Error()
		return
	}
	c.state.Mode = ModeError
	c.state.ErrorMessage = err.Error()
	c.lastErrorKind = k
	c.lastErrorSource = source
	if k == KindDataSourceUnavailable {
		c.retry.scheduleLocked(c)
	}
}

// InvalidateReference drops all cached data and bumps the generation, for a
// reference-genome switch (spec §5 "Cancellation": "on reference switch or
// quit, the controller bumps the generation and drops references to
// pending fetches").
func (c *Controller) InvalidateReference() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.ref.InvalidateAll()
	c.align.InvalidateAll()
	c.annotation.InvalidateAll()
	c.snapshot = Snapshot{}
	c.issueFetchesLocked()
}
