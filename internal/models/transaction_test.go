package models

import "testing"

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Happy path
		{StatusOpen, StatusResolved, true},

		// Dispute path
		{StatusOpen, StatusDisputed, true},
		{StatusDisputed, StatusAwaitingMediator, true},
		{StatusAwaitingMediator, StatusResolved, true},

		// Invalid transitions
		{StatusOpen, StatusAwaitingMediator, false},
		{StatusDisputed, StatusResolved, false},
		{StatusDisputed, StatusOpen, false},
		{StatusAwaitingMediator, StatusDisputed, false},
		{StatusAwaitingMediator, StatusOpen, false},
		{StatusResolved, StatusOpen, false},
		{StatusResolved, StatusDisputed, false},
		{StatusResolved, StatusAwaitingMediator, false},
		{"nonexistent", StatusResolved, false},
		{StatusOpen, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestAllStatusesHaveTransitionEntry(t *testing.T) {
	allStatuses := []string{
		StatusOpen, StatusDisputed, StatusAwaitingMediator, StatusResolved,
	}

	for _, status := range allStatuses {
		if _, ok := ValidTransitions[status]; !ok {
			t.Errorf("status %q missing from ValidTransitions map", status)
		}
	}
}

func TestResolvedIsTerminal(t *testing.T) {
	if len(ValidTransitions[StatusResolved]) != 0 {
		t.Errorf("resolved must accept no transitions, got %v", ValidTransitions[StatusResolved])
	}

	tx := Transaction{Status: StatusResolved}
	if !tx.IsTerminal() {
		t.Error("resolved transaction must be terminal")
	}
}

func TestAttestationEqual(t *testing.T) {
	tests := []struct {
		name     string
		a, b     *Attestation
		expected bool
	}{
		{"both match", &Attestation{Hash: "h1", Pass: true}, &Attestation{Hash: "h1", Pass: true}, true},
		{"hash differs", &Attestation{Hash: "h1", Pass: true}, &Attestation{Hash: "h2", Pass: true}, false},
		{"flag differs", &Attestation{Hash: "h1", Pass: true}, &Attestation{Hash: "h1", Pass: false}, false},
		{"nil receiver", nil, &Attestation{Hash: "h1", Pass: true}, false},
		{"nil other", &Attestation{Hash: "h1", Pass: true}, nil, false},
		{"both nil", nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.expected {
				t.Errorf("Equal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBothAttested(t *testing.T) {
	tx := Transaction{}
	if tx.BothAttested() {
		t.Error("empty transaction must not report both attested")
	}
	tx.SellerAttestation = &Attestation{Hash: "h"}
	if tx.BothAttested() {
		t.Error("seller-only transaction must not report both attested")
	}
	tx.BuyerAttestation = &Attestation{Hash: "h"}
	if !tx.BothAttested() {
		t.Error("transaction with both attestations must report both attested")
	}
}
