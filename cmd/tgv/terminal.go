// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/grailbio/tgv/internal/command"
	"github.com/grailbio/tgv/internal/render"
	"github.com/grailbio/tgv/internal/termsize"
)

// Event is one item off the terminal backend's event stream (spec §6
// "Terminal input/output": "consumes a stream of key, resize, and mouse
// events"). Exactly one of its fields is populated.
type Event struct {
	Key    command.Key
	Rune   rune // printable key, '\n' for Enter or 0x7f for Backspace; Key == "" when set
	Resize *termsize.Size
	Click  *Click
}

// Click is a translated mouse-click screen coordinate (0-based column and
// row), the input render.Grid.PositionAt takes; the event loop's
// dispatchEvent does not act on it.
type Click struct {
	Column, Row int
}

// ioctlGetTermios/ioctlSetTermios are the Linux TCGETS/TCSETS ioctl request
// numbers golang.org/x/sys/unix exposes; tgv's raw-mode terminal backend
// targets Linux only (the development and deployment platform here), unlike
// termsize.Get's IoctlGetWinsize which x/sys/unix already abstracts across
// platforms.
const (
	ioctlGetTermios = unix.TCGETS
	ioctlSetTermios = unix.TCSETS
)

// terminal is the concrete terminal backend: the spec §1 "terminal
// rendering backend" external collaborator, implemented here with a raw
// termios mode (grounded on other_examples' termios/ioctl approach, ported
// from its cgo style to golang.org/x/sys/unix so tgv stays cgo-free, the
// same substitution termsize.go already makes) and plain ANSI escape
// sequences for drawing -- no TUI library is wired since none in the
// examples pack is a buildable dependency of this tree (see DESIGN.md).
type terminal struct {
	fd       int
	orig     unix.Termios
	out      *bufio.Writer
	events   chan Event
	resizeCh chan os.Signal
}

// openTerminal puts stdin into cbreak (non-canonical, no-echo) mode and
// starts the background reader/resize-watcher goroutines.
func openTerminal() (*terminal, error) {
	fd := int(os.Stdin.Fd())
	orig, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return nil, fmt.Errorf("tgv: getting terminal attributes: %w", err)
	}
	raw := *orig
	raw.Lflag &^= unix.ICANON | unix.ECHO | unix.ISIG
	raw.Iflag &^= unix.IXON | unix.ICRNL
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, &raw); err != nil {
		return nil, fmt.Errorf("tgv: setting terminal attributes: %w", err)
	}

	t := &terminal{
		fd:       fd,
		orig:     *orig,
		out:      bufio.NewWriter(os.Stdout),
		events:   make(chan Event, 64),
		resizeCh: make(chan os.Signal, 1),
	}
	signal.Notify(t.resizeCh, syscall.SIGWINCH)
	go t.readLoop()
	go t.resizeLoop()
	return t, nil
}

// restore puts the terminal back into its original (canonical, echoing)
// mode. Must be called before process exit.
func (t *terminal) restore() error {
	return unix.IoctlSetTermios(t.fd, ioctlSetTermios, &t.orig)
}

// Events returns the channel of translated input events.
func (t *terminal) Events() <-chan Event { return t.events }

func (t *terminal) resizeLoop() {
	for range t.resizeCh {
		sz := termsize.GetOrDefault()
		t.events <- Event{Resize: &sz}
	}
}

// readLoop decodes raw stdin bytes into Events. It deliberately does not try
// to decide here whether a byte is a Normal-mode motion key or Command-mode
// text -- that depends on the controller's current Mode, which the event
// loop (main.go's dispatchEvent) already has to consult to route the event
// anyway. So every printable byte comes through as a Rune, Esc as its own
// Key, and Enter/Backspace as their own Runes; a raw byte that resolves to
// none of those (an unrecognized escape sequence) is dropped rather than
// propagated as an error, matching spec §7's "a malformed keystroke
// sequence must at worst show a status message" -- there's nothing to show
// here, since an unrecognized raw byte isn't even a command attempt yet.
func (t *terminal) readLoop() {
	r := bufio.NewReader(os.Stdin)
	for {
		b, err := r.ReadByte()
		if err != nil {
			close(t.events)
			return
		}
		switch {
		case b == 0x1b: // Esc, or the start of an escape sequence (mouse, arrow keys)
			if ev, ok := t.readEscapeSequence(r); ok {
				t.events <- ev
			}
		case b == '\r' || b == '\n':
			t.events <- Event{Rune: '\n'}
		case b == 0x7f || b == 0x08:
			t.events <- Event{Rune: 0x7f}
		case b >= 0x20 && b < 0x7f:
			t.events <- Event{Rune: rune(b)}
		}
	}
}

// readEscapeSequence consumes the remainder of a CSI (`ESC [ ...`) sequence,
// recognizing an xterm SGR mouse-click report (`ESC [ < b ; x ; y M`) and
// translating it into a Click; anything else is swallowed silently (arrow
// keys, function keys -- none are part of the Normal-mode grammar per spec
// §4.1, which is exclusively vi-style letter motions). An Esc that is not
// followed by '[' is returned as a KeyEsc event, and the byte read after it
// is pushed back for the next read.
func (t *terminal) readEscapeSequence(r *bufio.Reader) (Event, bool) {
	b1, err := r.ReadByte()
	if err != nil {
		return Event{Key: command.KeyEsc}, true
	}
	if b1 != '[' {
		r.UnreadByte() // nolint: errcheck
		return Event{Key: command.KeyEsc}, true
	}
	b2, err := r.ReadByte()
	if err != nil {
		return Event{}, false
	}
	if b2 != '<' {
		// Not an SGR mouse report; drain the rest of a typical CSI sequence
		// (final byte in 0x40-0x7e) and drop it.
		for {
			b, err := r.ReadByte()
			if err != nil || (b >= 0x40 && b <= 0x7e) {
				return Event{}, false
			}
		}
	}
	var params [3]int
	idx := 0
	cur := 0
	for idx < 3 {
		b, err := r.ReadByte()
		if err != nil {
			return Event{}, false
		}
		switch {
		case b >= '0' && b <= '9':
			cur = cur*10 + int(b-'0')
		case b == ';':
			params[idx] = cur
			cur = 0
			idx++
		case b == 'M' || b == 'm':
			params[idx] = cur
			return Event{Click: &Click{Column: params[1] - 1, Row: params[2] - 1}}, b == 'M'
		default:
			return Event{}, false
		}
	}
	return Event{}, false
}

// Draw renders g as ANSI text: a home-cursor, SGR color codes per run of
// same-styled cells, and a final flush. This is the minimal "draw a styled
// cell grid" half of the spec §1 terminal-backend collaborator; it
// intentionally does not attempt double-buffering or diffing, since tgv's
// render model already recomputes the whole grid per frame (spec §4.8).
func (t *terminal) Draw(g render.Grid) {
	t.out.WriteString("\x1b[H\x1b[2J")
	for row := 0; row < g.Height(); row++ {
		cells := g.Rows[row]
		var lastStyle render.Style
		first := true
		for _, c := range cells {
			if first || c.Style != lastStyle {
				t.out.WriteString(sgrFor(c.Style))
				lastStyle = c.Style
				first = false
			}
			if c.Rune == 0 {
				t.out.WriteByte(' ')
			} else {
				t.out.WriteRune(c.Rune)
			}
		}
		t.out.WriteString("\x1b[0m\r\n")
	}
	t.out.Flush()
}

// sgrFor maps a logical render.Style to an ANSI SGR escape sequence. Colors
// are a small fixed 16-color mapping (spec §9: "exact color mapping ...
// acknowledges divergence from IGV" -- this backend doesn't attempt to
// recover it either).
func sgrFor(s render.Style) string {
	var sb strings.Builder
	sb.WriteString("\x1b[0")
	if s.Bold {
		sb.WriteString(";1")
	}
	if s.Invert {
		sb.WriteString(";7")
	}
	if fg, ok := ansiFg[s.Fg]; ok {
		fmt.Fprintf(&sb, ";%d", fg)
	}
	if bg, ok := ansiBg[s.Bg]; ok {
		fmt.Fprintf(&sb, ";%d", bg)
	}
	sb.WriteString("m")
	return sb.String()
}

var ansiFg = map[render.Color]int{
	render.ColorBaseA:         32,
	render.ColorBaseC:         34,
	render.ColorBaseG:         33,
	render.ColorBaseT:         31,
	render.ColorBaseN:         37,
	render.ColorMismatch:      91,
	render.ColorDeletion:      90,
	render.ColorCoverageBar:   36,
	render.ColorCoverageAxis:  37,
	render.ColorGene:          35,
	render.ColorExon:          95,
	render.ColorReadForward:   94,
	render.ColorReadReverse:   93,
	render.ColorRuler:         37,
	render.ColorStatus:        37,
	render.ColorCommand:       97,
	render.ColorError:         91,
	render.ColorHelp:          97,
}

var ansiBg = map[render.Color]int{}
