package l5bars

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetLogWriters_Disable(t *testing.T) {
	var buf bytes.Buffer
	SetLogWriters(&buf, &buf, &buf)
	SetLogWriters(nil, nil, nil)

	if opsLogger != nil || diagLogger != nil || traceLogger != nil {
		t.Fatal("all loggers should be nil after SetLogWriters(nil, nil, nil)")
	}
	opsf("dropped %d", 1)
	diagf("dropped %d", 2)
	tracef("dropped %d", 3)
}

func TestIncompleteAlignmentIsLoggedOnDiag(t *testing.T) {
	var diag bytes.Buffer
	SetLogWriters(nil, &diag, nil)
	defer SetLogWriters(nil, nil, nil)

	_, err := newAligner(t, 2).Align([]StaffCandidates{staff(0, 10, 100), staff(1, 10)})
	require.NoError(t, err)

	out := diag.String()
	if !strings.Contains(out, "[l5bars]") || !strings.Contains(out, "incomplete Alignment{100.0 -}") {
		t.Errorf("diag stream = %q, want the incomplete alignment", out)
	}
}
