package chain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func TestRevertReasonFromMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
		ok   bool
	}{
		{"geth format", errors.New("execution reverted: Only arbitrator"), "Only arbitrator", true},
		{"wrapped", fmt.Errorf("send approveWork: %w", errors.New("execution reverted: Invalid status")), "Invalid status", true},
		{"no reason", errors.New("execution reverted"), "", true},
		{"transport error", errors.New("connection refused"), "", false},
		{"nil", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := revertReason(tt.err)
			if ok != tt.ok || got != tt.want {
				t.Errorf("revertReason(%v) = (%q, %v), want (%q, %v)", tt.err, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestEmbeddedABIsParse(t *testing.T) {
	escrowMethods := []string{
		"fundEscrow", "assignFreelancer", "submitWork", "approveWork",
		"initiateDispute", "releaseFundsToFreelancer", "refundToClient",
		"cancelAndRefund", "getJobDetails", "workSubmittedAt",
		"approvalTimeout", "arbitrator", "getBalance",
	}
	for _, m := range escrowMethods {
		if _, ok := jobEscrowABI.Methods[m]; !ok {
			t.Errorf("JobEscrow ABI missing method %q", m)
		}
	}

	for _, m := range []string{"createJob", "getJobContract"} {
		if _, ok := jobFactoryABI.Methods[m]; !ok {
			t.Errorf("JobFactory ABI missing method %q", m)
		}
	}
	if _, ok := jobFactoryABI.Events["JobCreated"]; !ok {
		t.Error("JobFactory ABI missing JobCreated event")
	}

	if out := jobEscrowABI.Methods["getJobDetails"].Outputs; len(out) != 8 {
		t.Errorf("getJobDetails has %d outputs, want 8", len(out))
	}
}

func TestParseAddress(t *testing.T) {
	canonical := common.HexToAddress("0x2222222222222222222222222222222222222222")

	tests := []struct {
		in      string
		wantErr bool
	}{
		{"0x2222222222222222222222222222222222222222", false},
		{"0x2222222222222222222222222222222222222222", false},
		{" 0x2222222222222222222222222222222222222222 ", false},
		{"2222222222222222222222222222222222222222", false},
		{"0x22", true},
		{"", true},
		{"not-an-address", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			addr, err := ParseAddress(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAddress(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAddress(%q): %v", tt.in, err)
			}
			if addr != canonical {
				t.Errorf("ParseAddress(%q) = %s, want %s", tt.in, addr.Hex(), canonical.Hex())
			}
		})
	}
}

func TestParseAddressCaseInsensitive(t *testing.T) {
	lower, err := ParseAddress("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd")
	if err != nil {
		t.Fatal(err)
	}
	upper, err := ParseAddress("0xABCDEFABCDEFABCDEFABCDEFABCDEFABCDEFABCD")
	if err != nil {
		t.Fatal(err)
	}
	if lower != upper {
		t.Error("mixed-case hex must canonicalize to the same address")
	}
}

func TestConfirmCtxAppliesTimeout(t *testing.T) {
	g := &Gateway{confirmTimeout: time.Minute}
	ctx, cancel := g.confirmCtx(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("configured confirm timeout did not bound the wait")
	}
	if until := time.Until(deadline); until > time.Minute || until < 30*time.Second {
		t.Errorf("deadline %v away, want about 1m", until)
	}
}

func TestConfirmCtxZeroMeansUnbounded(t *testing.T) {
	g := &Gateway{}
	ctx, cancel := g.confirmCtx(context.Background())
	defer cancel()

	if _, ok := ctx.Deadline(); ok {
		t.Error("no timeout configured, wait should inherit the caller's context")
	}
}
