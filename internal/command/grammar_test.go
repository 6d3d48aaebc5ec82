// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedAll(t *testing.T, p *NormalKeyParser, keys ...Key) (Command, error) {
	t.Helper()
	var last Command
	for i, k := range keys {
		cmd, ready, err := p.Feed(k)
		if err != nil {
			return Command{}, err
		}
		if ready {
			require.Equal(t, i, len(keys)-1, "command resolved before last key")
			last = cmd
		}
	}
	return last, nil
}

func TestDigitPrefixAccumulates(t *testing.T) {
	p := NewNormalKeyParser()
	cmd, err := feedAll(t, p, "2", "0", KeyH)
	require.NoError(t, err)
	assert.Equal(t, Command{Kind: KindPanBase, Repeat: -20}, cmd)
}

func TestZeroPrefixIsOne(t *testing.T) {
	p := NewNormalKeyParser()
	cmd, err := feedAll(t, p, "0", KeyL)
	require.NoError(t, err)
	assert.Equal(t, Command{Kind: KindPanBase, Repeat: 1}, cmd)
}

func TestNoPrefixIsOne(t *testing.T) {
	p := NewNormalKeyParser()
	cmd, err := feedAll(t, p, KeyL)
	require.NoError(t, err)
	assert.Equal(t, Command{Kind: KindPanBase, Repeat: 1}, cmd)
}

func TestRepeatCapped(t *testing.T) {
	p := NewNormalKeyParser()
	keys := []Key{}
	for _, r := range "999999" {
		keys = append(keys, Key(string(r)))
	}
	keys = append(keys, KeyL)
	cmd, err := feedAll(t, p, keys...)
	require.NoError(t, err)
	assert.Equal(t, MaxRepeat, cmd.Repeat)
}

func TestGPrefixExonEnd(t *testing.T) {
	p := NewNormalKeyParser()
	cmd, err := feedAll(t, p, KeyG, KeyE)
	require.NoError(t, err)
	assert.Equal(t, Command{Kind: KindPrevExonEnd, Repeat: 1}, cmd)
}

func TestGPrefixGeneEnd(t *testing.T) {
	p := NewNormalKeyParser()
	cmd, err := feedAll(t, p, "3", KeyG, KeyShiftE)
	require.NoError(t, err)
	assert.Equal(t, Command{Kind: KindPrevGeneEnd, Repeat: 3}, cmd)
}

func TestGPrefixCancelledByOtherKey(t *testing.T) {
	p := NewNormalKeyParser()
	_, _, err := p.Feed(KeyG)
	require.NoError(t, err)
	_, _, err = p.Feed(KeyH)
	assert.Error(t, err)
}

func TestEscResetsPrefix(t *testing.T) {
	p := NewNormalKeyParser()
	_, _, _ = p.Feed("5")
	_, ready, err := p.Feed(KeyEsc)
	require.NoError(t, err)
	require.True(t, ready)
	prefix, has := p.PendingPrefix()
	assert.False(t, has)
	assert.Equal(t, 0, prefix)
}

func TestParseCommandLineVariants(t *testing.T) {
	cases := []struct {
		line string
		want Command
	}{
		{"q", Command{Kind: KindQuit}},
		{"h", Command{Kind: KindHelp}},
		{"ls", Command{Kind: KindListContigs}},
		{"2345", Command{Kind: KindJumpPosition, Position: 2345}},
		{"chr1:2345", Command{Kind: KindJumpContigPosition, Contig: "chr1", Position: 2345}},
		{"TP53", Command{Kind: KindJumpFeature, Feature: "TP53"}},
	}
	for _, c := range cases {
		got, err := ParseCommandLine(c.line)
		require.NoError(t, err, c.line)
		assert.Equal(t, c.want, got, c.line)
	}
}

func TestParseCommandLineRoundTrip(t *testing.T) {
	lines := []string{"q", "h", "ls", "2345", "chr1:2345", "TP53"}
	for _, l := range lines {
		cmd, err := ParseCommandLine(l)
		require.NoError(t, err)
		cmd2, err := ParseCommandLine(cmd.String())
		require.NoError(t, err)
		assert.Equal(t, cmd, cmd2, l)
	}
}

func TestParseCommandLineErrors(t *testing.T) {
	for _, l := range []string{"", ":", "chr1:abc", "not a feature"} {
		_, err := ParseCommandLine(l)
		assert.Error(t, err, l)
	}
}
