package reqctx

import "context"

// Role is the total order ensign < lieutenant < captain < admiral
// (§4.7).
type Role int

const (
	RoleEnsign Role = iota
	RoleLieutenant
	RoleCaptain
	RoleAdmiral
)

// ParseRole maps a stored role string to its Role, defaulting to the
// lowest rank on an unrecognized value (fail closed on privilege).
func ParseRole(s string) Role {
	switch s {
	case "admiral":
		return RoleAdmiral
	case "captain":
		return RoleCaptain
	case "lieutenant":
		return RoleLieutenant
	default:
		return RoleEnsign
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmiral:
		return "admiral"
	case RoleCaptain:
		return "captain"
	case RoleLieutenant:
		return "lieutenant"
	default:
		return "ensign"
	}
}

// AtLeast reports whether r meets or exceeds min.
func (r Role) AtLeast(min Role) bool { return r >= min }

// Principal is the resolved identity of the caller of a request, produced
// by internal/authn's three-way resolution order.
type Principal struct {
	UserID        string
	Role          Role
	EmailVerified bool
	LockedAt      *string
	// ViaAdminToken marks identities synthesized from the bearer admin
	// token path, which skips the email-verification gate (§4.7).
	ViaAdminToken bool
}

type principalKey struct{}

// WithPrincipal attaches the resolved principal to the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the resolved principal, or nil if none was
// attached (meaning identity resolution never ran or failed).
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
