package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. All operations are keyed by label, the
// only stable surrogate across spreadsheet revisions.
type Transaction interface {
	Snapshot() TransactionView
	CreateProductFeature(ProductFeature) (ProductFeature, error)
	UpdateProductFeature(label string, mutator func(*ProductFeature) error) (ProductFeature, error)
	DeleteProductFeature(label string) error
	CreateCapability(Capability) (Capability, error)
	UpdateCapability(label string, mutator func(*Capability) error) (Capability, error)
	DeleteCapability(label string) error
	CreateTechnicalFunction(TechnicalFunction) (TechnicalFunction, error)
	UpdateTechnicalFunction(label string, mutator func(*TechnicalFunction) error) (TechnicalFunction, error)
	DeleteTechnicalFunction(label string) error
	FindProductFeature(label string) (ProductFeature, bool)
	FindCapability(label string) (Capability, bool)
	FindTechnicalFunction(label string) (TechnicalFunction, bool)
	// FindProductFeatureByName falls back to name matching for documents
	// authored against display names instead of labels.
	FindProductFeatureByName(name string) (ProductFeature, bool)
	FindCapabilityByName(name string) (Capability, bool)
	FindTechnicalFunctionByName(name string) (TechnicalFunction, bool)
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView = RuleView

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Report, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetProductFeature(label string) (ProductFeature, bool)
	ListProductFeatures() []ProductFeature
	GetCapability(label string) (Capability, bool)
	ListCapabilities() []Capability
	GetTechnicalFunction(label string) (TechnicalFunction, bool)
	ListTechnicalFunctions() []TechnicalFunction
}
