// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

/*
tgv is an interactive terminal genome browser: it renders a scrollable,
zoomable view of a reference sequence, gene/exon annotation, and aligned
reads from a BAM file, navigated with vi-style keystrokes and an ex-style
command line (see internal/command for the key grammar).
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/pkg/errors"

	"github.com/grailbio/tgv/internal/command"
	"github.com/grailbio/tgv/internal/controller"
	"github.com/grailbio/tgv/internal/render"
	"github.com/grailbio/tgv/internal/termsize"
)

// frameInterval is how often the event loop polls the controller's
// completion queue and redraws, independent of input (spec §5: "the event
// loop drains the queue at frame boundaries"). There's no terminal-library
// vsync signal to hook since no TUI library is wired (see DESIGN.md), so a
// plain ticker stands in for "frame boundary".
const frameInterval = 40 * time.Millisecond

// Exit codes (spec §6).
const (
	exitOK                    = 0
	exitUsage                 = 2
	exitDataSourceUnreachable = 3
	exitCacheCorruption       = 4
)

func main() {
	flag.Usage = tgvUsage
	shutdown := grail.Init()
	defer shutdown()

	opts, err := optsFromFlags(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(exitUsage)
	}

	ctx := vcontext.Background()

	switch {
	case opts.List:
		printCatalog(os.Stdout, false)
		return
	case opts.ListMore:
		printCatalog(os.Stdout, true)
		return
	case opts.Download != "":
		if err := runDownload(ctx, opts.Download); err != nil {
			log.Error.Printf("%v", err)
			os.Exit(exitCodeFor(err))
		}
		return
	}

	os.Exit(run(opts))
}

// run builds the providers/controller, drives the terminal event loop, and
// returns the process exit code; factored out of main so the startup-error
// paths below are a single, testable sequence of steps (cmd/bio-pileup's
// main instead delegates its whole body to one library call -- tgv's
// interactive loop can't fully leave main, but the exit-code mapping stays
// explicit and centralized).
func run(opts *Opts) int {
	size := termsize.GetOrDefault()

	app, err := buildApp(opts, size.Columns)
	if err != nil {
		log.Error.Printf("%v", err)
		return exitCodeFor(err)
	}
	defer app.Close()

	term, err := openTerminal()
	if err != nil {
		log.Error.Printf("tgv: opening terminal: %v", err)
		return exitDataSourceUnreachable
	}
	defer term.restore() // nolint: errcheck

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	redraw(term, app)
	for {
		select {
		case ev, ok := <-term.Events():
			if !ok {
				return exitOK
			}
			st := dispatchEvent(app.ctrl, ev)
			if st.Quit {
				return exitOK
			}
			redraw(term, app)
		case <-ticker.C:
			app.ctrl.DrainCompletions()
			redraw(term, app)
		}
	}
}

// dispatchEvent routes one terminal Event to the appropriate Controller
// method. Whether a printable rune is a Normal-mode motion key or
// Command-mode text depends entirely on the controller's current mode, so
// -- unlike a terminal library that hands back pre-classified key codes --
// the classification happens here rather than in terminal.go (spec §9
// "Modal state with numeric prefix": the state machine, not the input
// decoder, owns what a keystroke means).
func dispatchEvent(ctrl *controller.Controller, ev Event) controller.State {
	switch {
	case ev.Resize != nil:
		return ctrl.Resize(ev.Resize.Columns)
	case ev.Click != nil:
		// Spec §6: clicks translate to a genomic position "for possible
		// future interactive actions" -- no action is defined yet, so this
		// is intentionally a no-op.
		return ctrl.State()
	case ev.Key == command.KeyEsc:
		return ctrl.HandleEsc()
	}

	mode := ctrl.State().Mode
	switch {
	case mode == controller.ModeCommand && ev.Rune == '\n':
		return ctrl.HandleEnter()
	case mode == controller.ModeCommand && ev.Rune == 0x7f:
		return ctrl.HandleBackspace()
	case mode == controller.ModeCommand && ev.Rune != 0:
		return ctrl.HandleCommandRune(ev.Rune)
	case ev.Rune != 0:
		return ctrl.HandleNormalKey(command.Key(string(ev.Rune)))
	}
	return ctrl.State()
}

// redraw translates the controller's current State/Snapshot into a
// render.Input and draws it (spec §4.8's pure Render function deliberately
// doesn't know about controller.State, so this translation step is cmd/tgv's
// job rather than render's).
func redraw(term *terminal, a *app) {
	st := a.ctrl.State()
	snap := a.ctrl.Snapshot()

	in := render.Input{
		Window:           st.Window,
		Mode:             translateMode(st.Mode),
		CommandBuffer:    st.CommandBuffer,
		StatusMessage:    st.StatusMessage,
		ErrorMessage:     st.ErrorMessage,
		LaneScroll:       st.LaneScroll,
		RefBases:         snap.RefBases,
		RefInterval:      snap.RefInterval,
		Features:         snap.Features,
		FeaturesInterval: snap.FeaturesInterval,
		Reads:            snap.Reads,
		ReadsInterval:    snap.ReadsInterval,
		NoReference:      a.noReference,
	}
	term.Draw(render.Render(in))
}

func translateMode(m controller.Mode) render.Mode {
	switch m {
	case controller.ModeCommand:
		return render.ModeCommand
	case controller.ModeHelp:
		return render.ModeHelp
	case controller.ModeError:
		return render.ModeError
	default:
		return render.ModeNormal
	}
}

// exitCodeFor maps a startup error to spec §6's exit codes: 3 for an
// unreachable data source, 4 for cache corruption, 2 for anything that
// looks like a usage problem, 1 otherwise.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, ErrDataSourceUnreachable):
		return exitDataSourceUnreachable
	case errors.Is(err, ErrCacheCorruption):
		return exitCacheCorruption
	case errors.Is(err, ErrUsage):
		return exitUsage
	default:
		return 1
	}
}
