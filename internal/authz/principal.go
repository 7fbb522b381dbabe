package authz

import "context"

// Role is a coarse account role stored with the user.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Capability is a single permission checked by the core.
type Capability string

const (
	CreateBooks Capability = "create books"
	EditBooks   Capability = "edit books"
	DeleteBooks Capability = "delete books"
	ClearCache  Capability = "clear cache"
	BorrowBooks Capability = "borrow books"
	ReturnBooks Capability = "return books"
)

var roleCapabilities = map[Role][]Capability{
	RoleAdmin: {CreateBooks, EditBooks, DeleteBooks, ClearCache},
	RoleUser:  {BorrowBooks, ReturnBooks},
}

// CapabilitiesFor returns the capability set granted to a role.
func CapabilitiesFor(role Role) []Capability {
	caps := roleCapabilities[role]
	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}

// Principal is the resolved identity of a caller plus what it may do.
// It is passed explicitly into every core operation.
type Principal struct {
	UserID       string
	Role         Role
	capabilities map[Capability]struct{}
}

// NewPrincipal resolves the capability set for role.
func NewPrincipal(userID string, role Role) Principal {
	caps := make(map[Capability]struct{})
	for _, c := range roleCapabilities[role] {
		caps[c] = struct{}{}
	}
	return Principal{UserID: userID, Role: role, capabilities: caps}
}

// Can reports whether the principal holds capability c.
func (p Principal) Can(c Capability) bool {
	if p.UserID == "" {
		return false
	}
	_, ok := p.capabilities[c]
	return ok
}

// Authenticated reports whether the principal carries a user id.
func (p Principal) Authenticated() bool {
	return p.UserID != ""
}

type contextKey struct{}

// WithPrincipal stores p in ctx. Only the transport layer should call this.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// PrincipalFrom extracts the principal stored by WithPrincipal.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}
