package profile

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_Classification(t *testing.T) {
	tests := []struct {
		role      Role
		valid     bool
		admin     bool
		super     bool
		deptAdmin bool
	}{
		{RoleStudent, true, false, false, false},
		{RoleSuperAdmin, true, true, true, false},
		{RoleComputerAdmin, true, true, false, true},
		{RoleCivilAdmin, true, true, false, true},
		{RoleElectricalAdmin, true, true, false, true},
		{RoleMechanicalAdmin, true, true, false, true},
		{RoleFirstYearAdmin, true, true, false, true},
		{Role("lecturer"), false, false, false, false},
		{Role(""), false, false, false, false},
		{Role("Super_Admin"), false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.role.Valid())
			assert.Equal(t, tt.admin, tt.role.IsAdmin())
			assert.Equal(t, tt.super, tt.role.IsSuperAdmin())
			assert.Equal(t, tt.deptAdmin, tt.role.IsDepartmentAdmin())
		})
	}
}

func TestRole_Department(t *testing.T) {
	d, ok := RoleFirstYearAdmin.Department()
	require.True(t, ok)
	assert.Equal(t, DepartmentFirstYear, d)

	_, ok = RoleSuperAdmin.Department()
	assert.False(t, ok)
}

func TestProfile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		wantErr error
	}{
		{
			name:    "student without department",
			profile: Profile{SubjectID: "u1", Role: RoleStudent},
		},
		{
			name:    "super admin without department",
			profile: Profile{SubjectID: "u1", Role: RoleSuperAdmin},
		},
		{
			name:    "department admin with own department",
			profile: Profile{SubjectID: "u1", Role: RoleCivilAdmin, Department: DepartmentPtr(DepartmentCivil)},
		},
		{
			name:    "missing subject",
			profile: Profile{Role: RoleStudent},
			wantErr: ErrSubjectRequired,
		},
		{
			name:    "unknown role",
			profile: Profile{SubjectID: "u1", Role: "janitor"},
			wantErr: ErrInvalidRole,
		},
		{
			name:    "department admin without department",
			profile: Profile{SubjectID: "u1", Role: RoleComputerAdmin},
			wantErr: ErrDepartmentRequired,
		},
		{
			name:    "department admin with other department",
			profile: Profile{SubjectID: "u1", Role: RoleComputerAdmin, Department: DepartmentPtr(DepartmentCivil)},
			wantErr: ErrDepartmentMismatch,
		},
		{
			name:    "student with department",
			profile: Profile{SubjectID: "u1", Role: RoleStudent, Department: DepartmentPtr(DepartmentCivil)},
			wantErr: ErrDepartmentNotAllowed,
		},
		{
			name:    "super admin with department",
			profile: Profile{SubjectID: "u1", Role: RoleSuperAdmin, Department: DepartmentPtr(DepartmentComputer)},
			wantErr: ErrDepartmentNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseDepartment(t *testing.T) {
	d, err := ParseDepartment(" first year ")
	require.NoError(t, err)
	assert.Equal(t, DepartmentFirstYear, d)

	_, err = ParseDepartment("Chemistry")
	assert.Error(t, err)
}

func TestProfile_DepartmentName(t *testing.T) {
	var nilProfile *Profile
	assert.Empty(t, nilProfile.DepartmentName())
	assert.Empty(t, (&Profile{}).DepartmentName())
	assert.Equal(t, "Mechanical", (&Profile{Department: DepartmentPtr(DepartmentMechanical)}).DepartmentName())
}

func TestStoreErrors_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")

	fetchErr := fmt.Errorf("resolve: %w", &FetchError{SubjectID: "u1", Err: cause})
	assert.True(t, IsFetchError(fetchErr))
	assert.False(t, IsWriteError(fetchErr))
	assert.ErrorIs(t, fetchErr, cause)

	writeErr := &WriteError{SubjectID: "u1", Err: cause}
	assert.True(t, IsWriteError(writeErr))
	assert.Contains(t, writeErr.Error(), "write profile u1")
}
