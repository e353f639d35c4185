package model

// Role is the closed set of account roles. The value is stored verbatim
// in users.role and embedded in token claims, so the constants below are
// the only strings that may ever appear there.
type Role string

const (
	RoleBuyer  Role = "buyer"  // may author reviews
	RoleSeller Role = "seller" // may own products
	RoleAdmin  Role = "admin"  // may own categories and manage any record
)

// Valid reports whether r is one of the predefined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	default:
		return false
	}
}

// String returns the raw role name.
func (r Role) String() string { return string(r) }
