// Package rbac maps contract party addresses to roles and the operations
// each role may perform.
package rbac

import "github.com/data-escrow/backend/internal/config"

// Role constants
const (
	RoleBuyer    = "buyer"
	RoleSeller   = "seller"
	RoleMediator = "mediator"
)

// Permission constants
const (
	PermCreateTransaction = "create_transaction"
	PermSubmitAttestation = "submit_attestation"
	PermMediate           = "mediate"
)

// RolePermissions defines what each role can do.
var RolePermissions = map[string][]string{
	RoleBuyer: {
		PermCreateTransaction, PermSubmitAttestation,
	},
	RoleSeller: {
		PermSubmitAttestation,
		// Seller CANNOT: PermCreateTransaction
	},
	RoleMediator: {
		PermMediate,
	},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// RoleFor resolves an address against the configured contract parties.
// Returns "" when the address belongs to none of them.
func RoleFor(contract config.Contract, addr string) string {
	switch addr {
	case contract.Buyer:
		return RoleBuyer
	case contract.Seller:
		return RoleSeller
	case contract.Mediator:
		return RoleMediator
	}
	return ""
}
