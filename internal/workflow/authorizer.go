package workflow

import "sort"

// RoleTable maps a step's approver role to the actor roles allowed to act on it.
type RoleTable map[Role][]Role

// DefaultRoleTable returns a copy of the built-in escalation table. Higher
// roles may act on steps gated by lower ones; the reverse is never allowed.
func DefaultRoleTable() RoleTable {
	return RoleTable{
		RoleTechnician:    {RoleTechnician, RoleSupervisor, RoleManager, RoleAdmin},
		RoleSupervisor:    {RoleSupervisor, RoleManager, RoleAdmin},
		RoleManager:       {RoleManager, RoleAdmin},
		RoleSafetyOfficer: {RoleSafetyOfficer, RoleAdmin},
		RoleFinance:       {RoleFinance, RoleAdmin},
		RoleAdmin:         {RoleAdmin},
	}
}

// Authorizer decides whether an actor role may act on a step.
type Authorizer interface {
	CanAct(approverRole, actorRole Role) bool
}

// StepAuthorizer is an Authorizer backed by a closed RoleTable. Roles missing
// from the table are denied.
type StepAuthorizer struct {
	allowed map[Role]map[Role]struct{}
}

// NewStepAuthorizer builds an authorizer from table. A nil table yields the
// default escalation table.
func NewStepAuthorizer(table RoleTable) *StepAuthorizer {
	if table == nil {
		table = DefaultRoleTable()
	}
	allowed := make(map[Role]map[Role]struct{}, len(table))
	for required, actors := range table {
		set := make(map[Role]struct{}, len(actors))
		for _, a := range actors {
			set[a.Normalize()] = struct{}{}
		}
		allowed[required.Normalize()] = set
	}
	return &StepAuthorizer{allowed: allowed}
}

// CanAct reports whether actorRole may satisfy a step gated by approverRole.
func (a *StepAuthorizer) CanAct(approverRole, actorRole Role) bool {
	set, ok := a.allowed[approverRole.Normalize()]
	if !ok {
		return false
	}
	_, ok = set[actorRole.Normalize()]
	return ok
}

// Roles returns every role that appears in the table, sorted.
func (a *StepAuthorizer) Roles() []Role {
	seen := make(map[Role]struct{})
	for required, actors := range a.allowed {
		seen[required] = struct{}{}
		for actor := range actors {
			seen[actor] = struct{}{}
		}
	}
	roles := make([]Role, 0, len(seen))
	for r := range seen {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}
