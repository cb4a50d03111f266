// Package profile holds the portal's authorization record: who a subject is
// inside the portal, which role tier they belong to and which department
// they administer.
package profile

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of authorization tiers a profile can carry.
type Role string

const (
	RoleStudent         Role = "student"
	RoleSuperAdmin      Role = "super_admin"
	RoleComputerAdmin   Role = "computer_admin"
	RoleCivilAdmin      Role = "civil_admin"
	RoleElectricalAdmin Role = "electrical_admin"
	RoleMechanicalAdmin Role = "mechanical_admin"
	RoleFirstYearAdmin  Role = "firstyear_admin"
)

// Department names a department administered by a department admin.
type Department string

const (
	DepartmentComputer   Department = "Computer"
	DepartmentCivil      Department = "Civil"
	DepartmentElectrical Department = "Electrical"
	DepartmentMechanical Department = "Mechanical"
	DepartmentFirstYear  Department = "First Year"
)

// departmentAdmins maps each department admin role to the department it owns.
//
//nolint:gochecknoglobals // static read-only lookup
var departmentAdmins = map[Role]Department{
	RoleComputerAdmin:   DepartmentComputer,
	RoleCivilAdmin:      DepartmentCivil,
	RoleElectricalAdmin: DepartmentElectrical,
	RoleMechanicalAdmin: DepartmentMechanical,
	RoleFirstYearAdmin:  DepartmentFirstYear,
}

// AllDepartments returns every known department in display order.
func AllDepartments() []Department {
	return []Department{
		DepartmentComputer,
		DepartmentCivil,
		DepartmentElectrical,
		DepartmentMechanical,
		DepartmentFirstYear,
	}
}

// AllRoles returns every valid role.
func AllRoles() []Role {
	return []Role{
		RoleStudent,
		RoleSuperAdmin,
		RoleComputerAdmin,
		RoleCivilAdmin,
		RoleElectricalAdmin,
		RoleMechanicalAdmin,
		RoleFirstYearAdmin,
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	if r == RoleStudent || r == RoleSuperAdmin {
		return true
	}
	_, ok := departmentAdmins[r]
	return ok
}

// IsAdmin reports whether r is any admin tier.
func (r Role) IsAdmin() bool { return r == RoleSuperAdmin || r.IsDepartmentAdmin() }

// IsSuperAdmin reports whether r is the super admin tier.
func (r Role) IsSuperAdmin() bool { return r == RoleSuperAdmin }

// IsDepartmentAdmin reports whether r administers a single department.
func (r Role) IsDepartmentAdmin() bool {
	_, ok := departmentAdmins[r]
	return ok
}

// Department returns the department owned by a department admin role.
func (r Role) Department() (Department, bool) {
	d, ok := departmentAdmins[r]
	return d, ok
}

// Valid reports whether d is a known department.
func (d Department) Valid() bool {
	for _, known := range AllDepartments() {
		if d == known {
			return true
		}
	}
	return false
}

// ParseDepartment matches a department name case-insensitively.
func ParseDepartment(s string) (Department, error) {
	s = strings.TrimSpace(s)
	for _, d := range AllDepartments() {
		if strings.EqualFold(string(d), s) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown department %q", s)
}

// Profile is the persisted authorization record keyed by the identity
// provider's subject id.
type Profile struct {
	SubjectID  string      `json:"subject_id"           db:"subject_id"`
	Name       string      `json:"name"                 db:"name"`
	Email      string      `json:"email"                db:"email"`
	Role       Role        `json:"role"                 db:"role"`
	Department *Department `json:"department"           db:"department"`
	CreatedAt  time.Time   `json:"created_at"           db:"created_at"`
	LastLogin  *time.Time  `json:"last_login,omitempty" db:"last_login"`
}

var (
	ErrSubjectRequired      = errors.New("subject id is required")
	ErrInvalidRole          = errors.New("role is not a known role")
	ErrDepartmentRequired   = errors.New("department is required for department admins")
	ErrDepartmentNotAllowed = errors.New("department must be empty for students and super admins")
	ErrDepartmentMismatch   = errors.New("department does not match the admin role")
)

// Validate checks the role enum and the department rule.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.SubjectID) == "" {
		return ErrSubjectRequired
	}
	if !p.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, p.Role)
	}
	owned, isDeptAdmin := p.Role.Department()
	switch {
	case isDeptAdmin && p.Department == nil:
		return ErrDepartmentRequired
	case isDeptAdmin && *p.Department != owned:
		return fmt.Errorf("%w: %s administers %q", ErrDepartmentMismatch, p.Role, owned)
	case !isDeptAdmin && p.Department != nil:
		return ErrDepartmentNotAllowed
	}
	return nil
}

// DepartmentName returns the department or an empty string.
func (p *Profile) DepartmentName() string {
	if p == nil || p.Department == nil {
		return ""
	}
	return string(*p.Department)
}

// Filter narrows a profile query. A nil Department lists everyone.
type Filter struct {
	Department *Department
}

// Supplied carries optional user-provided fields merged into a profile on upsert.
type Supplied struct {
	Name  *string
	Email *string
}

// DepartmentPtr returns a pointer to d.
func DepartmentPtr(d Department) *Department { return &d }
