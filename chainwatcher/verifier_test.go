package chainwatcher

import "testing"

// NewTxVerifier constructs without error given a nil client; Verify itself
// needs a live RPC endpoint and is not exercised by this package's tests.
func TestNewTxVerifier_Constructs(t *testing.T) {
	v := NewTxVerifier(nil)
	if v == nil {
		t.Fatal("expected non-nil verifier")
	}
}
