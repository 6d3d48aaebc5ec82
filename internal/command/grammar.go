// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package command

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrParseCommand is the sentinel wrapped by all grammar parse failures.
var ErrParseCommand = errors.New("command: parse error")

// MaxRepeat caps the numeric prefix to guard against runaway motions (spec
// §4.1: "cap at a configured maximum, e.g. 10_000").
const MaxRepeat = 10000

// Key is a single Normal-mode input token. Multi-rune keys (Esc) are passed
// as their own tokens, while the two-key 'ge'/'gE' sequences arrive as two
// tokens ("g", then "e" or "E"); the terminal backend is
// responsible for turning raw key events into these tokens, which keeps this
// package free of any terminal library dependency.
type Key string

// Recognized Normal-mode keys. Digit keys are their own literal string
// ("0".."9").
const (
	KeyH      Key = "h"
	KeyL      Key = "l"
	KeyJ      Key = "j"
	KeyK      Key = "k"
	KeyY      Key = "y"
	KeyP      Key = "p"
	KeyW      Key = "w"
	KeyB      Key = "b"
	KeyE      Key = "e"
	KeyShiftW Key = "W"
	KeyShiftB Key = "B"
	KeyShiftE Key = "E"
	KeyZ      Key = "z"
	KeyO      Key = "o"
	KeyG      Key = "g"
	KeyColon  Key = ":"
	KeyEsc    Key = "Esc"
)

// NormalKeyParser accumulates a numeric repeat prefix and resolves the
// subsequent movement key into a Command (spec §4.1). It also tracks the
// two-key 'g' prefix needed for 'ge'/'gE'. One NormalKeyParser is owned by
// the view controller and fed one key at a time.
type NormalKeyParser struct {
	prefix    int
	hasPrefix bool
	awaitingG bool
}

// NewNormalKeyParser returns a parser with no pending state.
func NewNormalKeyParser() *NormalKeyParser {
	return &NormalKeyParser{}
}

// PendingPrefix returns the currently accumulated prefix, and whether one has
// been typed at all (spec §3 PendingPrefix is optional).
func (p *NormalKeyParser) PendingPrefix() (int, bool) {
	return p.prefix, p.hasPrefix
}

// Reset clears any pending digits and cancels an in-progress 'g' sequence;
// used on Esc and after every resolved movement (spec §4.7).
func (p *NormalKeyParser) Reset() {
	p.prefix = 0
	p.hasPrefix = false
	p.awaitingG = false
}

// repeat returns the effective repeat count: the accumulated prefix, or 1 if
// none was typed. A typed "0" is treated as prefix 1 (spec §8 boundary
// behavior), since hasPrefix with prefix==0 can only arise from a lone '0'.
func (p *NormalKeyParser) repeat() int {
	if !p.hasPrefix || p.prefix == 0 {
		return 1
	}
	if p.prefix > MaxRepeat {
		return MaxRepeat
	}
	return p.prefix
}

// Feed processes one Normal-mode key. It returns (cmd, true, nil) when a
// Command is ready to dispatch, (zero, false, nil) when more keys are needed
// (a digit was accumulated, or 'g' is awaiting its second key), or a non-nil
// error when the sequence is malformed (an invalid key after 'g'). On every
// path that resolves or rejects a motion, the prefix is reset; digit
// accumulation alone does not reset it.
func (p *NormalKeyParser) Feed(key Key) (Command, bool, error) {
	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		if p.awaitingG {
			p.Reset()
			return Command{}, false, errors.Wrap(ErrParseCommand, "digit cannot follow 'g'")
		}
		d := int(key[0] - '0')
		p.prefix = p.prefix*10 + d
		p.hasPrefix = true
		if p.prefix > MaxRepeat {
			p.prefix = MaxRepeat
		}
		return Command{}, false, nil
	}

	if p.awaitingG {
		p.awaitingG = false
		repeat := p.repeat()
		p.Reset()
		switch key {
		case KeyE:
			return Command{Kind: KindPrevExonEnd, Repeat: repeat}, true, nil
		case KeyShiftE:
			return Command{Kind: KindPrevGeneEnd, Repeat: repeat}, true, nil
		default:
			return Command{}, false, errors.Wrapf(ErrParseCommand, "unexpected key %q after 'g'", key)
		}
	}

	if key == KeyG {
		p.awaitingG = true
		return Command{}, false, nil
	}

	repeat := p.repeat()
	var cmd Command
	switch key {
	case KeyH:
		cmd = Command{Kind: KindPanBase, Repeat: -repeat}
	case KeyL:
		cmd = Command{Kind: KindPanBase, Repeat: repeat}
	case KeyK:
		cmd = Command{Kind: KindScrollLane, Repeat: -repeat}
	case KeyJ:
		cmd = Command{Kind: KindScrollLane, Repeat: repeat}
	case KeyY:
		cmd = Command{Kind: KindPanWindow, Repeat: -repeat}
	case KeyP:
		cmd = Command{Kind: KindPanWindow, Repeat: repeat}
	case KeyW:
		cmd = Command{Kind: KindNextExonStart, Repeat: repeat}
	case KeyB:
		cmd = Command{Kind: KindPrevExonStart, Repeat: repeat}
	case KeyE:
		cmd = Command{Kind: KindNextExonEnd, Repeat: repeat}
	case KeyShiftW:
		cmd = Command{Kind: KindNextGeneStart, Repeat: repeat}
	case KeyShiftB:
		cmd = Command{Kind: KindPrevGeneStart, Repeat: repeat}
	case KeyShiftE:
		cmd = Command{Kind: KindNextGeneEnd, Repeat: repeat}
	case KeyZ:
		cmd = Command{Kind: KindZoomIn, Repeat: repeat}
	case KeyO:
		cmd = Command{Kind: KindZoomOut, Repeat: repeat}
	case KeyColon:
		p.Reset()
		return Command{Kind: KindEnterCommand}, true, nil
	case KeyEsc:
		p.Reset()
		return Command{Kind: KindEscape}, true, nil
	default:
		p.Reset()
		return Command{}, false, errors.Wrapf(ErrParseCommand, "unrecognized key %q", key)
	}
	p.Reset()
	return cmd, true, nil
}

// ParseCommandLine parses a submitted Command-mode line (spec §4.1). It
// never mutates any parser state; it is a pure function of the line.
func ParseCommandLine(line string) (Command, error) {
	line = strings.TrimSpace(line)
	switch line {
	case "q":
		return Command{Kind: KindQuit}, nil
	case "h":
		return Command{Kind: KindHelp}, nil
	case "ls":
		return Command{Kind: KindListContigs}, nil
	case "":
		return Command{}, errors.Wrap(ErrParseCommand, "empty command")
	}

	if n, err := strconv.ParseInt(line, 10, 64); err == nil {
		return Command{Kind: KindJumpPosition, Position: n}, nil
	}

	if idx := strings.LastIndex(line, ":"); idx >= 0 {
		contig := line[:idx]
		posStr := line[idx+1:]
		if contig == "" {
			return Command{}, errors.Wrapf(ErrParseCommand, "missing contig in %q", line)
		}
		n, err := strconv.ParseInt(posStr, 10, 64)
		if err != nil {
			return Command{}, errors.Wrapf(ErrParseCommand, "bad position in %q", line)
		}
		return Command{Kind: KindJumpContigPosition, Contig: contig, Position: n}, nil
	}

	if !isValidIdentifier(line) {
		return Command{}, errors.Wrapf(ErrParseCommand, "invalid token %q", line)
	}
	return Command{Kind: KindJumpFeature, Feature: line}, nil
}

func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}
