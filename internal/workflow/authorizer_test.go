package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepAuthorizer_DefaultTable(t *testing.T) {
	a := NewStepAuthorizer(nil)

	tests := []struct {
		approver Role
		actor    Role
		want     bool
	}{
		{RoleSupervisor, RoleSupervisor, true},
		{RoleSupervisor, RoleManager, true},
		{RoleSupervisor, RoleAdmin, true},
		{RoleSupervisor, RoleTechnician, false},
		{RoleManager, RoleSupervisor, false},
		{RoleManager, RoleManager, true},
		{RoleAdmin, RoleManager, false},
		{RoleFinance, RoleManager, false},
		{RoleFinance, RoleFinance, true},
		{RoleSafetyOfficer, RoleSupervisor, false},
		{RoleTechnician, RoleTechnician, true},
		{"Supervisor", " MANAGER ", true},
		{"contractor", RoleAdmin, false},
		{RoleSupervisor, "contractor", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.approver)+"/"+string(tt.actor), func(t *testing.T) {
			assert.Equal(t, tt.want, a.CanAct(tt.approver, tt.actor))
		})
	}
}

func TestStepAuthorizer_CustomTable(t *testing.T) {
	a := NewStepAuthorizer(RoleTable{"inspector": {"inspector", "auditor"}})

	assert.True(t, a.CanAct("inspector", "auditor"))
	assert.False(t, a.CanAct(RoleSupervisor, RoleSupervisor), "roles outside a custom table are denied")
	assert.Equal(t, []Role{"auditor", "inspector"}, a.Roles())
}

func TestDefaultRoleTableIsACopy(t *testing.T) {
	table := DefaultRoleTable()
	table[RoleAdmin] = append(table[RoleAdmin], RoleTechnician)

	assert.False(t, NewStepAuthorizer(nil).CanAct(RoleAdmin, RoleTechnician))
}
