package models

import (
	"time"
)

// Transaction statuses
const (
	StatusOpen             = "open"
	StatusDisputed         = "disputed"
	StatusAwaitingMediator = "awaiting_mediator"
	StatusResolved         = "resolved"
)

// Valid state transitions: from -> []to
var ValidTransitions = map[string][]string{
	StatusOpen:             {StatusDisputed, StatusResolved},
	StatusDisputed:         {StatusAwaitingMediator},
	StatusAwaitingMediator: {StatusResolved},
	StatusResolved:         {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Attestation is a party's claim about the outcome of a data exchange:
// a commitment hash over the delivered result plus a pass/fail verdict.
// A nil *Attestation on a transaction means the party has not attested yet.
type Attestation struct {
	Hash string `json:"hash"`
	Pass bool   `json:"pass"`
}

// Equal reports whether both the hash and the verdict match.
func (a *Attestation) Equal(other *Attestation) bool {
	if a == nil || other == nil {
		return false
	}
	return a.Hash == other.Hash && a.Pass == other.Pass
}

type Transaction struct {
	ID                int64        `json:"id"`
	Buyer             string       `json:"buyer"`
	Seller            string       `json:"seller"`
	Mediator          string       `json:"mediator"`
	Amount            int64        `json:"amount"` // nano units, equals the escrowed value
	Status            string       `json:"status"`
	DisputeDeadline   *time.Time   `json:"dispute_deadline,omitempty"`
	SellerAttestation *Attestation `json:"seller_attestation,omitempty"`
	BuyerAttestation  *Attestation `json:"buyer_attestation,omitempty"`
	Winner            *string      `json:"winner,omitempty"` // address paid on resolution
	ResolvedAt        *time.Time   `json:"resolved_at,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// IsTerminal returns true if the transaction accepts no further transitions.
func (t *Transaction) IsTerminal() bool {
	return t.Status == StatusResolved
}

// BothAttested returns true once buyer and seller have each submitted.
func (t *Transaction) BothAttested() bool {
	return t.SellerAttestation != nil && t.BuyerAttestation != nil
}

// IsParty reports whether addr is the transaction's buyer or seller.
func (t *Transaction) IsParty(addr string) bool {
	return addr == t.Buyer || addr == t.Seller
}
