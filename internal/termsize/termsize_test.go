// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package termsize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetOnInvalidFDReturnsError(t *testing.T) {
	// An arbitrarily large, almost certainly-closed file descriptor: the
	// ioctl fails and Get returns the error with a zero Size.
	sz, err := Get(^uintptr(0) - 1)
	assert.Error(t, err)
	assert.Zero(t, sz)
}

func TestDefaultSizeIsSane(t *testing.T) {
	assert.Greater(t, DefaultSize.Rows, 0)
	assert.Greater(t, DefaultSize.Columns, 0)
}
