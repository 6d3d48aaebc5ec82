// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package termsize reads the controlling terminal's current row/column
// count, for sizing ViewWindow.Columns at startup and on resize (spec §6
// "Terminal input/output"); the row count is not used by the render model,
// whose read-lane budget is fixed. It is grounded on
// other_examples' termios-based ioctl pattern (TIOCGWINSZ), generalized to
// golang.org/x/sys/unix -- already a teacher go.mod dependency -- instead of
// cgo, since tgv otherwise builds cgo-free.
package termsize

import (
	"os"

	"golang.org/x/sys/unix"
)

// Size is a terminal's dimensions in character cells.
type Size struct {
	Rows, Columns int
}

// DefaultSize is used when the controlling terminal's size can't be
// determined (e.g. stdout is redirected to a file): a conservative 80x24
// matching the classic VT100 default.
var DefaultSize = Size{Rows: 24, Columns: 80}

// Get reads the window size of the given file descriptor's controlling
// terminal via TIOCGWINSZ. Callers typically pass os.Stdout.Fd().
func Get(fd uintptr) (Size, error) {
	ws, err := unix.IoctlGetWinsize(int(fd), unix.TIOCGWINSZ)
	if err != nil {
		return Size{}, err
	}
	return Size{Rows: int(ws.Row), Columns: int(ws.Col)}, nil
}

// GetOrDefault reads the current stdout terminal size, falling back to
// DefaultSize on any error (no controlling terminal, redirected output).
func GetOrDefault() Size {
	sz, err := Get(os.Stdout.Fd())
	if err != nil || sz.Rows == 0 || sz.Columns == 0 {
		return DefaultSize
	}
	return sz
}
