// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package controller

import (
	"github.com/pkg/errors"

	"github.com/grailbio/tgv/internal/align"
	"github.com/grailbio/tgv/internal/annotation"
	"github.com/grailbio/tgv/internal/command"
	"github.com/grailbio/tgv/internal/genome"
	"github.com/grailbio/tgv/internal/refseq"
)

// ErrorKind is one of the error kinds spec §7 assigns a distinct recovery
// policy to.
type ErrorKind int

const (
	// KindInternal is what Classify returns for a nil error; errors with no
	// recognized sentinel classify as KindDataSourceUnavailable instead.
	KindInternal ErrorKind = iota
	KindParseCommand
	KindUnknownContig
	KindUnknownFeature
	KindOutOfBounds
	KindDataSourceUnavailable
	KindMalformedRecord
	KindCacheCorruption
)

// Classify maps an error returned by a provider, the annotation index, or
// the command grammar to its spec §7 error kind, by walking the sentinel
// chain with errors.Is (pkg/errors wraps preserve Is/As like the stdlib
// does). Errors with no recognized sentinel default to
// KindDataSourceUnavailable: in practice every unclassified error bubbling
// up from a Provider.Fetch is an I/O failure (network, file-not-found,
// permission), which is exactly that kind's recovery policy (retry, keep
// showing cached data).
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, command.ErrParseCommand):
		return KindParseCommand
	case errors.Is(err, genome.ErrUnknownContig):
		return KindUnknownContig
	case errors.Is(err, annotation.ErrUnknownFeature):
		return KindUnknownFeature
	case errors.Is(err, genome.ErrEmptyInterval):
		return KindOutOfBounds
	case errors.Is(err, align.ErrMalformedCigar):
		return KindMalformedRecord
	case errors.Is(err, refseq.ErrMalformedReference):
		return KindCacheCorruption
	default:
		return KindDataSourceUnavailable
	}
}

// recoverable reports whether kind is handled by preserving the current
// mode and setting a status-line message (spec §7), as opposed to entering
// Error mode.
func (k ErrorKind) recoverable() bool {
	switch k {
	case KindParseCommand, KindUnknownContig, KindUnknownFeature, KindOutOfBounds:
		return true
	default:
		return false
	}
}

func (k ErrorKind) String() string {
	switch k {
	case KindParseCommand:
		return "ParseCommand"
	case KindUnknownContig:
		return "UnknownContig"
	case KindUnknownFeature:
		return "UnknownFeature"
	case KindOutOfBounds:
		return "OutOfBounds"
	case KindDataSourceUnavailable:
		return "DataSourceUnavailable"
	case KindMalformedRecord:
		return "MalformedRecord"
	case KindCacheCorruption:
		return "CacheCorruption"
	default:
		return "Internal"
	}
}
