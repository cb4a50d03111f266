package testutil

import (
	"time"

	domainauth "github.com/Chavhanmoin/CrackBatu/internal/domain/auth"
	"github.com/Chavhanmoin/CrackBatu/internal/domain/profile"
)

// ProfileBuilder provides a fluent interface for building profiles in tests.
type ProfileBuilder struct {
	p profile.Profile
}

// NewProfile starts a student profile for subjectID.
func NewProfile(subjectID string) *ProfileBuilder {
	return &ProfileBuilder{p: profile.Profile{
		SubjectID: subjectID,
		Name:      "User " + subjectID,
		Email:     subjectID + "@example.edu",
		Role:      profile.RoleStudent,
		CreatedAt: TestTime(),
	}}
}

// WithName sets the display name.
func (b *ProfileBuilder) WithName(name string) *ProfileBuilder {
	b.p.Name = name
	return b
}

// WithEmail sets the email.
func (b *ProfileBuilder) WithEmail(email string) *ProfileBuilder {
	b.p.Email = email
	return b
}

// SuperAdmin makes the profile a super admin.
func (b *ProfileBuilder) SuperAdmin() *ProfileBuilder {
	b.p.Role = profile.RoleSuperAdmin
	b.p.Department = nil
	return b
}

// DepartmentAdmin makes the profile the admin of dept.
func (b *ProfileBuilder) DepartmentAdmin(dept profile.Department) *ProfileBuilder {
	for _, r := range profile.AllRoles() {
		if d, ok := r.Department(); ok && d == dept {
			b.p.Role = r
		}
	}
	b.p.Department = profile.DepartmentPtr(dept)
	return b
}

// WithRole sets the role without touching the department.
func (b *ProfileBuilder) WithRole(r profile.Role) *ProfileBuilder {
	b.p.Role = r
	return b
}

// LastLoginAt sets last_login.
func (b *ProfileBuilder) LastLoginAt(at time.Time) *ProfileBuilder {
	b.p.LastLogin = &at
	return b
}

// Build returns the profile.
func (b *ProfileBuilder) Build() profile.Profile {
	return b.p
}

// Identity returns a verified password identity for subjectID.
func Identity(subjectID string) domainauth.Identity {
	return domainauth.Identity{
		SubjectID:     subjectID,
		Email:         subjectID + "@example.edu",
		Name:          "User " + subjectID,
		EmailVerified: true,
		Method:        domainauth.MethodPassword,
	}
}
