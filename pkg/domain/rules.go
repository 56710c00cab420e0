package domain

import "context"

// RuleView provides read-only access to domain entities for rule evaluation.
type RuleView interface {
	ListProductFeatures() []ProductFeature
	ListCapabilities() []Capability
	ListTechnicalFunctions() []TechnicalFunction
	FindProductFeature(label string) (ProductFeature, bool)
	FindCapability(label string) (Capability, bool)
	FindTechnicalFunction(label string) (TechnicalFunction, bool)
}

// Rule defines an evaluation executed within a transaction boundary.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Report, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate executes all registered rules and aggregates their reports.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Report, error) {
	var combined Report
	for _, rule := range e.rules {
		rep, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Report{}, err
		}
		combined.Merge(rep)
	}
	return combined, nil
}
