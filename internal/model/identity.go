package model

// Roles understood by the booking core.  Tokens are issued by the
// authentication service; this service only reads the role claim.
const (
    RoleAdmin     = "ADMIN"
    RoleCorporate = "CORPORATE"
    RoleCustomer  = "CUSTOMER"
)

// Caller is the identity attached to a request.
type Caller struct {
    ID   uint64
    Role string
}

// Privileged reports whether the caller may act on other users' seats and
// purchases.
func (c Caller) Privileged() bool { return c.Role == RoleAdmin }

// Owns reports whether the caller is userID or privileged.
func (c Caller) Owns(userID uint64) bool { return c.ID == userID || c.Privileged() }
