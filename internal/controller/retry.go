// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package controller

import (
	"sync"
	"time"
)

// retryBaseDelay and retryMaxDelay bound the exponential backoff for
// DataSourceUnavailable errors (spec §7: "a background retry with
// exponential backoff (capped) may be scheduled").
const (
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 30 * time.Second
)

// retryState tracks the single outstanding backoff timer for
// DataSourceUnavailable recovery. Only one retry is ever in flight: a
// window change before the timer fires simply re-issues fetches directly
// (issueFetchesLocked), and the pending retry's own re-fetch becomes a
// harmless extra request for whatever window is current when it fires,
// which the region cache serves from its entries or coalesces.
type retryState struct {
	mu      sync.Mutex
	attempt int
	timer   *time.Timer
}

func newRetryState() *retryState {
	return &retryState{}
}

// scheduleLocked arms (or re-arms) the backoff timer. c.mu is held by the
// caller across this call, but the timer callback itself acquires it fresh
// when it fires.
func (r *retryState) scheduleLocked(c *Controller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		return // a retry is already pending
	}
	delay := retryBaseDelay << uint(r.attempt)
	if delay > retryMaxDelay || delay <= 0 {
		delay = retryMaxDelay
	}
	r.attempt++
	r.timer = time.AfterFunc(delay, func() {
		r.mu.Lock()
		r.timer = nil
		r.mu.Unlock()
		c.retryNow()
	})
}

// reset clears the backoff state after a successful fetch.
func (r *retryState) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempt = 0
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// retryNow re-issues fetches for the current window; it runs on the
// timer's own goroutine, so it takes the controller lock like any other
// external entry point.
func (c *Controller) retryNow() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issueFetchesLocked()
}
