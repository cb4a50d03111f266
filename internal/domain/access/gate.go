// Package access decides, per page, whether a resolved session may render it.
//
// Pages declare a Requirement; Evaluate maps the current SessionContext and
// that Requirement to a Decision. Evaluate is pure: identical inputs always
// yield identical decisions.
package access

import (
	domainauth "github.com/Chavhanmoin/CrackBatu/internal/domain/auth"
	"github.com/Chavhanmoin/CrackBatu/internal/domain/profile"
)

// SessionContext is the resolved view of the current session consumed by
// every gated page. Err carries a profile store failure.
type SessionContext struct {
	Identity *domainauth.Identity
	Profile  *profile.Profile
	Resolved bool
	Err      error
}

// Authenticated reports whether an identity is present.
func (c SessionContext) Authenticated() bool { return c.Identity != nil }

// Provisioned reports whether the identity has a profile.
func (c SessionContext) Provisioned() bool { return c.Identity != nil && c.Profile != nil }

// Capability is what a page requires of the viewer.
type Capability string

const (
	CapabilityNone            Capability = "none"
	CapabilityAnyAdmin        Capability = "any-admin"
	CapabilitySuperAdminOnly  Capability = "super-admin-only"
	CapabilityDepartmentScope Capability = "department-scoped"
)

// Audience selects which login page a redirect points at.
type Audience string

const (
	AudienceStudent Audience = "student"
	AudienceAdmin   Audience = "admin"
)

const (
	StudentLoginPath = "/login"
	AdminLoginPath   = "/admin/login"
)

// LoginPath returns the login page for the audience.
func (a Audience) LoginPath() string {
	if a == AudienceAdmin {
		return AdminLoginPath
	}
	return StudentLoginPath
}

// Requirement is a page's declared access requirement. Department names the
// department the page is about and only matters for department-scoped pages.
type Requirement struct {
	Capability Capability
	Audience   Audience
	Department *profile.Department
}

// Outcome is the kind of decision reached.
type Outcome string

const (
	Allow       Outcome = "allow"
	Redirect    Outcome = "redirect"
	Forbidden   Outcome = "forbidden"
	Unavailable Outcome = "unavailable"
)

// Reason explains a non-allow decision.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonUnauthenticated   Reason = "unauthenticated"
	ReasonNotProvisioned    Reason = "not_provisioned"
	ReasonNotAdmin          Reason = "not_admin"
	ReasonNotSuperAdmin     Reason = "not_super_admin"
	ReasonOutsideDepartment Reason = "outside_department"
	ReasonInvalidRole       Reason = "invalid_role"
	ReasonProfileFetch      Reason = "profile_fetch_failed"
)

// Grants summarises what an allowed viewer may do.
type Grants struct {
	AllDepartments         bool                 `json:"all_departments"`
	Departments            []profile.Department `json:"departments"`
	CanEdit                bool                 `json:"can_edit"`
	CanUpload              bool                 `json:"can_upload"`
	CanDelete              bool                 `json:"can_delete"`
	DeleteRequiresApproval bool                 `json:"delete_requires_approval"`
	ReadOnly               bool                 `json:"read_only"`
}

// Decision is the gate's verdict. Profile and Grants are set only on Allow.
type Decision struct {
	Outcome    Outcome
	RedirectTo string
	Reason     Reason
	Profile    *profile.Profile
	Grants     Grants
}

// Allowed reports whether the decision permits rendering.
func (d Decision) Allowed() bool { return d.Outcome == Allow }

// Evaluate applies the ordered policy table; the first matching rule wins.
func Evaluate(sc SessionContext, req Requirement) Decision {
	// A failed profile read is retryable and must not look like a logout.
	if sc.Err != nil {
		return Decision{Outcome: Unavailable, Reason: ReasonProfileFetch}
	}
	if sc.Identity == nil {
		return redirect(req, ReasonUnauthenticated)
	}
	if sc.Profile == nil {
		return redirect(req, ReasonNotProvisioned)
	}

	p := sc.Profile
	role := p.Role
	if !role.Valid() && req.Capability != CapabilityNone {
		return forbid(ReasonInvalidRole)
	}

	switch req.Capability {
	case CapabilityAnyAdmin:
		if !role.IsAdmin() {
			return forbid(ReasonNotAdmin)
		}
	case CapabilitySuperAdminOnly:
		if !role.IsSuperAdmin() {
			return forbid(ReasonNotSuperAdmin)
		}
	case CapabilityDepartmentScope:
		if !role.IsAdmin() {
			return forbid(ReasonNotAdmin)
		}
		if role.IsDepartmentAdmin() && p.Department == nil {
			return forbid(ReasonInvalidRole)
		}
		if req.Department != nil && !inScope(p, *req.Department) {
			return forbid(ReasonOutsideDepartment)
		}
	case CapabilityNone:
	}

	return Decision{Outcome: Allow, Profile: p, Grants: GrantsFor(p)}
}

// GrantsFor returns the capability summary for a profile.
func GrantsFor(p *profile.Profile) Grants {
	if p == nil {
		return Grants{ReadOnly: true}
	}
	switch {
	case p.Role.IsSuperAdmin():
		return Grants{
			AllDepartments: true,
			Departments:    profile.AllDepartments(),
			CanEdit:        true,
			CanUpload:      true,
			CanDelete:      true,
		}
	case p.Role.IsDepartmentAdmin() && p.Department != nil:
		return Grants{
			Departments:            []profile.Department{*p.Department},
			CanEdit:                true,
			CanUpload:              true,
			DeleteRequiresApproval: true,
		}
	default:
		return Grants{ReadOnly: true}
	}
}

// AllowsDepartment reports whether the grants cover d.
func (g Grants) AllowsDepartment(d profile.Department) bool {
	if g.AllDepartments {
		return true
	}
	for _, own := range g.Departments {
		if own == d {
			return true
		}
	}
	return false
}

func inScope(p *profile.Profile, d profile.Department) bool {
	if p.Role.IsSuperAdmin() {
		return true
	}
	return p.Department != nil && *p.Department == d
}

func redirect(req Requirement, reason Reason) Decision {
	return Decision{Outcome: Redirect, RedirectTo: req.Audience.LoginPath(), Reason: reason}
}

func forbid(reason Reason) Decision {
	return Decision{Outcome: Forbidden, Reason: reason}
}
