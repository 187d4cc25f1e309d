package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Built-in work-order categories.
const (
	CategoryStandard  = "standard"
	CategoryEmergency = "emergency"
	CategoryCapital   = "capital"
	CategorySafety    = "safety"
)

// Definition is the approval template for one work-order category.
type Definition struct {
	Category    string         `json:"category" yaml:"category"`
	DisplayName string         `json:"display_name,omitempty" yaml:"display_name"`
	Steps       []StepTemplate `json:"steps" yaml:"steps"`
}

// DefinitionProvider resolves a work-order category to its ordered step
// templates. Unknown categories fail with ErrUnknownTemplate.
type DefinitionProvider interface {
	Resolve(ctx context.Context, category string) ([]StepTemplate, error)
}

// DefinitionLister enumerates the definitions a provider can resolve.
type DefinitionLister interface {
	List(ctx context.Context) ([]Definition, error)
}

// NormalizeCategory returns the lookup key for a category name.
func NormalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// DefaultDefinitions returns the built-in catalog.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			Category:    CategoryStandard,
			DisplayName: "Standard Work Order",
			Steps: []StepTemplate{
				{Order: 1, Name: "Supervisor Review", Description: "Supervisor reviews scope and labour estimate", ApproverRole: RoleSupervisor, IsRequired: true},
				{Order: 2, Name: "Manager Approval", Description: "Manager approves cost and scheduling", ApproverRole: RoleManager, IsRequired: true},
				{Order: 3, Name: "Quality Check", Description: "Optional quality sign-off before closing", ApproverRole: RoleSupervisor, IsRequired: false},
			},
		},
		{
			Category:    CategoryEmergency,
			DisplayName: "Emergency Repair",
			Steps: []StepTemplate{
				{Order: 1, Name: "Supervisor Authorization", Description: "Supervisor authorizes immediate dispatch", ApproverRole: RoleSupervisor, IsRequired: true},
				{Order: 2, Name: "Safety Review", Description: "Post-dispatch safety review", ApproverRole: RoleSafetyOfficer, IsRequired: false},
			},
		},
		{
			Category:    CategoryCapital,
			DisplayName: "Capital Project",
			Steps: []StepTemplate{
				{Order: 1, Name: "Supervisor Review", Description: "Supervisor reviews technical scope", ApproverRole: RoleSupervisor, IsRequired: true},
				{Order: 2, Name: "Manager Approval", Description: "Manager approves project plan", ApproverRole: RoleManager, IsRequired: true},
				{Order: 3, Name: "Finance Approval", Description: "Finance confirms budget availability", ApproverRole: RoleFinance, IsRequired: true},
				{Order: 4, Name: "Executive Sign-off", Description: "Optional executive acknowledgement", ApproverRole: RoleAdmin, IsRequired: false},
			},
		},
		{
			Category:    CategorySafety,
			DisplayName: "Safety-Critical Work",
			Steps: []StepTemplate{
				{Order: 1, Name: "Safety Assessment", Description: "Hazard assessment and permit to work", ApproverRole: RoleSafetyOfficer, IsRequired: true},
				{Order: 2, Name: "Supervisor Review", Description: "Supervisor confirms crew and isolation plan", ApproverRole: RoleSupervisor, IsRequired: true},
				{Order: 3, Name: "Manager Approval", Description: "Manager accepts residual risk", ApproverRole: RoleManager, IsRequired: true},
			},
		},
	}
}

// ValidateDefinition checks that d can seed a workflow: a category, at least
// one step, at least one required step, positive unique orders, and a name and
// approver role on every step.
func ValidateDefinition(d Definition) error {
	if NormalizeCategory(d.Category) == "" {
		return fmt.Errorf("definition: category is required")
	}
	if err := ValidateTemplates(d.Steps); err != nil {
		return fmt.Errorf("definition %q: %w", d.Category, err)
	}
	return nil
}

// ValidateTemplates checks the step shape every workflow must have. Errors
// wrap ErrInvalidTemplate.
func ValidateTemplates(templates []StepTemplate) error {
	if len(templates) == 0 {
		return fmt.Errorf("%w: at least one step is required", ErrInvalidTemplate)
	}
	seen := make(map[int]struct{}, len(templates))
	hasRequired := false
	for _, s := range templates {
		if s.Order <= 0 {
			return fmt.Errorf("%w: step %q has non-positive order %d", ErrInvalidTemplate, s.Name, s.Order)
		}
		if _, dup := seen[s.Order]; dup {
			return fmt.Errorf("%w: duplicate step order %d", ErrInvalidTemplate, s.Order)
		}
		seen[s.Order] = struct{}{}
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("%w: step %d has no name", ErrInvalidTemplate, s.Order)
		}
		if s.ApproverRole.Normalize() == "" {
			return fmt.Errorf("%w: step %d has no approver role", ErrInvalidTemplate, s.Order)
		}
		if s.IsRequired {
			hasRequired = true
		}
	}
	if !hasRequired {
		return fmt.Errorf("%w: at least one step must be required", ErrInvalidTemplate)
	}
	return nil
}

// SortedTemplates returns a copy of templates in ascending order.
func SortedTemplates(templates []StepTemplate) []StepTemplate {
	out := make([]StepTemplate, len(templates))
	copy(out, templates)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// StaticProvider serves definitions from memory.
type StaticProvider struct {
	definitions map[string]Definition
}

// NewStaticProvider validates defs and indexes them by category.
func NewStaticProvider(defs []Definition) (*StaticProvider, error) {
	p := &StaticProvider{definitions: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if err := ValidateDefinition(d); err != nil {
			return nil, err
		}
		key := NormalizeCategory(d.Category)
		if _, dup := p.definitions[key]; dup {
			return nil, fmt.Errorf("definition %q: duplicate category", d.Category)
		}
		d.Category = key
		d.Steps = SortedTemplates(d.Steps)
		p.definitions[key] = d
	}
	return p, nil
}

// NewDefaultProvider returns a provider over DefaultDefinitions.
func NewDefaultProvider() *StaticProvider {
	p, err := NewStaticProvider(DefaultDefinitions())
	if err != nil {
		panic(err)
	}
	return p
}

// Resolve returns the ordered templates for category.
func (p *StaticProvider) Resolve(_ context.Context, category string) ([]StepTemplate, error) {
	d, ok := p.definitions[NormalizeCategory(category)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, category)
	}
	return SortedTemplates(d.Steps), nil
}

// List returns every definition, sorted by category.
func (p *StaticProvider) List(_ context.Context) ([]Definition, error) {
	out := make([]Definition, 0, len(p.definitions))
	for _, d := range p.definitions {
		d.Steps = SortedTemplates(d.Steps)
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}
