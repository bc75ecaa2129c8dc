// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

package errutil_test

import (
	"testing"

	"github.com/samber/oops"

	"github.com/carvalue/carvalue/pkg/errutil"
)

func TestAssertErrorCode_MatchingCode(t *testing.T) {
	err := oops.Code("SESSION_INVALID").Errorf("no session")
	errutil.AssertErrorCode(t, err, "SESSION_INVALID")
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	err := oops.With("user_id", int64(3)).Errorf("forbidden")
	errutil.AssertErrorContext(t, err, "user_id", int64(3))
}
