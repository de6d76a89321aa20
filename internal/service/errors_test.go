package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/yieldtree/engine/internal/constants"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("%w: id=1", ErrAccountNotFound), constants.ErrorKindNotFound},
		{ErrDuplicateEntry, constants.ErrorKindDuplicate},
		{fmt.Errorf("%w: %v", ErrItemTimeout, context.DeadlineExceeded), constants.ErrorKindTimeout},
		{ErrRunAborted, constants.ErrorKindAborted},
		{fmt.Errorf("%w: database is locked", ErrTransientStore), constants.ErrorKindTransient},
		{ErrConfiguration, constants.ErrorKindConfiguration},
		{ErrRunConflict, constants.ErrorKindRunConflict},
		{&stageError{stage: constants.RunStageCommission, err: ErrAccountNotFound}, constants.ErrorKindNotFound},
		{fmt.Errorf("boom"), constants.ErrorKindInternal},
	}
	for _, tc := range cases {
		if got := ClassifyError(tc.err); got != tc.want {
			t.Fatalf("ClassifyError(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	if !isRetryable(&stageError{stage: constants.RunStageCommission, err: fmt.Errorf("%w: x", ErrTransientStore)}) {
		t.Fatalf("wrapped transient error should be retryable")
	}
	if isRetryable(ErrAccountNotFound) {
		t.Fatalf("not found should not be retryable")
	}
}

func TestTruncateReason(t *testing.T) {
	long := strings.Repeat("错", 300)
	if got := []rune(truncateReason(long)); len(got) != 255 {
		t.Fatalf("unexpected truncated length: %d", len(got))
	}
	if truncateReason("short") != "short" {
		t.Fatalf("short reason should be unchanged")
	}
}
