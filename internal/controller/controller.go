// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package controller implements the view controller / state machine (spec
// §4.7): it turns keystrokes and submitted command lines into ViewWindow
// mutations, owns the three provider caches, and drains their async fetch
// completions. It is grounded on encoding/bamprovider.BAMProvider's pattern
// of a single mutex guarding mutable state plus a separate async-result
// path, generalized here into an explicit finite state machine per spec §9
// ("Modal state with numeric prefix").
package controller

import (
	"sync"

	"github.com/grailbio/tgv/internal/align"
	"github.com/grailbio/tgv/internal/annotation"
	"github.com/grailbio/tgv/internal/command"
	"github.com/grailbio/tgv/internal/genome"
	"github.com/grailbio/tgv/internal/refseq"
)

// Mode is the controller's state machine state (spec §4.7).
type Mode int

const (
	// ModeNormal accepts motion keystrokes.
	ModeNormal Mode = iota
	// ModeCommand is editing a command-mode line.
	ModeCommand
	// ModeHelp displays the key reference; any key returns to Normal.
	ModeHelp
	// ModeError is an unrecoverable data error (spec §7); cached data still
	// renders underneath it.
	ModeError
)

// State is the immutable snapshot the render model consumes (spec §4.8:
// "Pure function from (window, snapshot, mode, command_buffer, error)").
// Controller methods return a fresh copy after each mutation.
type State struct {
	Mode          Mode
	CommandBuffer string
	// StatusMessage carries recoverable, non-modal information: parse
	// errors, unknown contig/feature, out-of-bounds, or "no feature found"
	// (spec §7: these four kinds "preserve state" rather than entering
	// Error mode).
	StatusMessage string
	// ErrorMessage is set only in ModeError.
	ErrorMessage string
	Window       genome.ViewWindow
	LaneScroll   int
	// Quit is set once ':q' has been processed; the host's event loop
	// checks this after every HandleX call and exits if true.
	Quit bool
}

// refProvider is the subset of refseq.CachingProvider's methods the
// controller needs; expressed as an interface so tests can substitute a
// fake.
type refProvider interface {
	refseq.Provider
	Pin(iv genome.Interval)
	InvalidateAll()
	Prefetch(iv genome.Interval)
}

// alignProvider mirrors align.CachingProvider.
type alignProvider interface {
	align.Provider
	Pin(iv genome.Interval)
	InvalidateAll()
	Prefetch(iv genome.Interval)
}

// featureSource mirrors annotation.CachingSource (no Prefetch: features are
// fetched synchronously-cheap enough that prefetching wasn't worth wiring).
type featureSource interface {
	annotation.Source
	Pin(iv genome.Interval)
	InvalidateAll()
}

// Snapshot is the most recently applied data for the current window, used
// by the render model. Each field's *Interval records what interval it
// actually covers, since a completion can arrive for an interval narrower
// than the full window if the window changed again mid-fetch (spec §5).
type Snapshot struct {
	RefBases         []byte
	RefInterval      genome.Interval
	Features         []annotation.Feature
	FeaturesInterval genome.Interval
	Reads            []align.Read
	ReadsInterval    genome.Interval
}

// Controller owns the ViewWindow, the three provider caches, and the
// keystroke/command-line parsers, and implements the spec §4.7 state
// machine. One Controller exists per process; all of its mutating methods
// hold an internal mutex, since the host's event loop and its own retry
// timer goroutine (retry.go) both call into it (spec §9: "Global mutable
// state ... confine to a single application record").
type Controller struct {
	mu sync.Mutex

	aliases    *genome.AliasTable
	annotation featureSource
	ref        refProvider
	align      alignProvider

	parser *command.NormalKeyParser
	state  State

	snapshot        Snapshot
	generation      int
	lastIssuedIv    genome.Interval
	lastErrorKind   ErrorKind
	lastErrorSource kind
	completions     *completionQueue
	executor        func(func())
	retry           *retryState
}

// New constructs a Controller over an initial window and the three provider
// caches. executor, if non-nil, is used to run fetch goroutines instead of a
// bare `go`; tests use this to run fetches synchronously.
func New(initial genome.ViewWindow, aliases *genome.AliasTable, ann featureSource, ref refProvider, al alignProvider, executor func(func())) *Controller {
	c := &Controller{
		aliases:     aliases,
		annotation:  ann,
		ref:         ref,
		align:       al,
		parser:      command.NewNormalKeyParser(),
		state:       State{Mode: ModeNormal, Window: clampToContig(initial, aliases)},
		completions: newCompletionQueue(defaultMaxQueue),
		executor:    executor,
	}
	c.retry = newRetryState()
	c.issueFetchesLocked()
	return c
}

// State returns the current state snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the most recently applied provider data.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// ListContigs returns the loaded contigs in load order, for ':ls' (spec
// §4.1).
func (c *Controller) ListContigs() []genome.Contig {
	contigs := c.aliases.All()
	out := make([]genome.Contig, len(contigs))
	for i, ct := range contigs {
		out[i] = *ct
	}
	return out
}

// clampToContig clamps w against the contig length known to aliases, if
// any; an unknown contig (e.g. before any reference is loaded) is left
// unclamped except for the LeftBase >= 1 / BasesPerColumn >= 1 floors.
func clampToContig(w genome.ViewWindow, aliases *genome.AliasTable) genome.ViewWindow {
	if aliases != nil {
		if ct, err := aliases.Canonical(w.ContigID); err == nil {
			return w.Clamp(ct.Length)
		}
	}
	if w.BasesPerColumn < 1 {
		w.BasesPerColumn = 1
	}
	if w.LeftBase < 1 {
		w.LeftBase = 1
	}
	return w
}

func (c *Controller) contigLength(contigID string) (genome.PosType, bool) {
	if c.aliases == nil {
		return 0, false
	}
	ct, err := c.aliases.Canonical(contigID)
	if err != nil {
		return 0, false
	}
	return ct.Length, true
}

// HandleEsc implements the "Any state + Esc -> Normal" transition (spec
// §4.7).
func (c *Controller) HandleEsc() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parser.Reset()
	c.state.Mode = ModeNormal
	c.state.CommandBuffer = ""
	c.state.StatusMessage = ""
	c.state.ErrorMessage = ""
	return c.state
}

// HandleNormalKey feeds one Normal-mode keystroke through the command
// grammar and applies the resulting Command, if any (spec §4.7).
func (c *Controller) HandleNormalKey(key command.Key) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Mode == ModeHelp {
		// Any key dismisses the help overlay.
		c.state.Mode = ModeNormal
		return c.state
	}
	if c.state.Mode != ModeNormal {
		return c.state
	}

	cmd, ready, err := c.parser.Feed(key)
	if err != nil {
		c.state.StatusMessage = err.Error()
		return c.state
	}
	if !ready {
		return c.state
	}
	switch cmd.Kind {
	case command.KindEnterCommand:
		c.state.Mode = ModeCommand
		c.state.CommandBuffer = ""
		c.state.StatusMessage = ""
	case command.KindEscape:
		c.state.Mode = ModeNormal
	default:
		c.dispatchLocked(cmd)
	}
	return c.state
}

// HandleCommandRune appends a printable rune to the Command-mode buffer.
func (c *Controller) HandleCommandRune(r rune) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Mode != ModeCommand {
		return c.state
	}
	c.state.CommandBuffer += string(r)
	return c.state
}

// HandleBackspace deletes the last rune of the Command-mode buffer.
func (c *Controller) HandleBackspace() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Mode != ModeCommand || c.state.CommandBuffer == "" {
		return c.state
	}
	runes := []rune(c.state.CommandBuffer)
	c.state.CommandBuffer = string(runes[:len(runes)-1])
	return c.state
}

// HandleEnter parses and dispatches the Command-mode buffer, then always
// returns to Normal (spec §4.7; recoverable lookup/parse failures set
// StatusMessage per spec §7 rather than entering Error mode -- see
// DESIGN.md "Command-mode failure routing").
func (c *Controller) HandleEnter() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Mode != ModeCommand {
		return c.state
	}
	line := c.state.CommandBuffer
	c.state.CommandBuffer = ""
	c.state.Mode = ModeNormal

	cmd, err := command.ParseCommandLine(line)
	if err != nil {
		c.state.StatusMessage = err.Error()
		return c.state
	}
	c.dispatchLocked(cmd)
	return c.state
}

// Resize updates the window's column count in response to a terminal resize
// event (spec §6 "Terminal input/output": "consumes a stream of key,
// resize, and mouse events") and re-issues fetches for the now-different
// visible interval, the same way any other window mutation does
// (setWindowLocked, dispatch.go).
func (c *Controller) Resize(columns int) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if columns < 1 {
		columns = 1
	}
	w := c.state.Window
	w.Columns = columns
	if length, ok := c.contigLength(w.ContigID); ok {
		w = w.Clamp(length)
	}
	c.setWindowLocked(w)
	return c.state
}
