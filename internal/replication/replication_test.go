package replication

import (
	"errors"
	"testing"
)

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{name: "default", policy: DefaultPolicy()},
		{name: "strict", policy: Policy{N: 3, W: 2, R: 2}},
		{name: "write all", policy: Policy{N: 3, W: 3, R: 1}},
		{name: "zero N", policy: Policy{N: 0, W: 1}, wantErr: true},
		{name: "zero W", policy: Policy{N: 2, W: 0}, wantErr: true},
		{name: "W above N", policy: Policy{N: 2, W: 3}, wantErr: true},
		{name: "negative R", policy: Policy{N: 2, W: 1, R: -1}, wantErr: true},
		{name: "R above N", policy: Policy{N: 2, W: 1, R: 3}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPolicy) {
				t.Errorf("Expected ErrInvalidPolicy, got %v", err)
			}
		})
	}
}

func TestPolicy_Caps(t *testing.T) {
	p := Policy{N: 3, W: 2, R: 2}
	if got := p.RequiredAcks(1); got != 1 {
		t.Errorf("Expected W capped to 1 target, got %d", got)
	}
	if got := p.RequiredAcks(3); got != 2 {
		t.Errorf("Expected W=2, got %d", got)
	}
	if got := p.RequiredResponses(0); got != 0 {
		t.Errorf("Expected R capped to 0 targets, got %d", got)
	}
}

func TestPolicy_Strict(t *testing.T) {
	if DefaultPolicy().Strict() {
		t.Error("Default policy should not be strict")
	}
	if !(Policy{N: 3, W: 2, R: 2}).Strict() {
		t.Error("N=3 W=2 R=2 should be strict")
	}
}
