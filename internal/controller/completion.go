// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package controller

import (
	"sync"

	"github.com/grailbio/base/log"

	"github.com/grailbio/tgv/internal/genome"
)

// kind identifies which of the three providers produced a completion.
type kind int

const (
	kindRef kind = iota
	kindFeatures
	kindReads
)

// completion is a typed message posted by a background fetch goroutine. The
// event loop applies it on the next DrainCompletions call (spec §5: "the
// event loop drains the queue at frame boundaries").
type completion struct {
	kind       kind
	generation int
	iv         genome.Interval
	payload    interface{}
	err        error
}

// defaultMaxQueue bounds the completion queue (spec §5 "a bounded completion
// queue"); three fetches are issued per window change, so this comfortably
// covers several in-flight window changes before anything is dropped.
const defaultMaxQueue = 64

// completionQueue is a bounded FIFO that drops the oldest entry when full,
// rather than blocking the fetch goroutine that's posting to it (spec §5
// "Backpressure"). It is its own small type, rather than a buffered
// channel, because a channel send on a full buffered channel blocks instead
// of evicting — exactly the behavior the spec rules out.
type completionQueue struct {
	mu  sync.Mutex
	buf []completion
	max int
}

func newCompletionQueue(max int) *completionQueue {
	return &completionQueue{max: max}
}

// push appends c, dropping the oldest queued completion if the queue is
// full and logging the drop (spec §5: "logged as a miss; a subsequent
// redraw will reissue the fetch if still needed").
func (q *completionQueue) push(c completion) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) >= q.max {
		dropped := q.buf[0]
		q.buf = q.buf[1:]
		log.Error.Printf("controller: completion queue full, dropping stale fetch for %s", dropped.iv)
	}
	q.buf = append(q.buf, c)
}

// drain returns and clears all queued completions, in arrival order.
func (q *completionQueue) drain() []completion {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) == 0 {
		return nil
	}
	out := q.buf
	q.buf = nil
	return out
}
