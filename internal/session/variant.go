package session

import "github.com/taaskr/taaskr-shell/internal/identity"

// Variant selects the app-specific access rules. The three frontends share
// one session core parameterized by variant instead of carrying duplicated
// implementations.
type Variant string

const (
	// VariantAdmin is the admin console; it requires at least one role
	// flagged administrative.
	VariantAdmin Variant = "admin"
	// VariantCustomer is the customer marketplace; it requires a role
	// literally named "customer".
	VariantCustomer Variant = "customer"
	// VariantTaaskr is the service-provider app; it requires a role named
	// "taaskr".
	VariantTaaskr Variant = "taaskr"
)

// MePath returns the "who am I" endpoint for the variant. The admin console
// asks for the admin projection of the profile.
func (v Variant) MePath() string {
	if v == VariantAdmin {
		return "/api/users/me/?context=admin"
	}
	return "/api/users/me/"
}

// Allows reports whether the identity satisfies the variant's required-role
// predicate.
func (v Variant) Allows(id *identity.Identity) bool {
	switch v {
	case VariantAdmin:
		return id.HasAdminRole()
	case VariantTaaskr:
		return id.HasRole("taaskr")
	default:
		return id.HasRole("customer")
	}
}

// MismatchCode is the error code synthesized when a successfully
// authenticated identity fails the variant predicate.
func (v Variant) MismatchCode() string {
	switch v {
	case VariantAdmin:
		return "NOT_ADMIN"
	case VariantTaaskr:
		return "NOT_TAASKR"
	default:
		return "NOT_CUSTOMER"
	}
}
