// Package core exposes the transactional roadmap service: label-keyed CRUD,
// document apply/export, rule evaluation, and pluggable observability.
package core

import (
	"context"
	"fmt"
	"time"

	"roadmapcore/internal/infra/persistence/memory"
)

// Service exposes higher-level transactional operations over a persistent
// store. Every mutation runs inside a store transaction so registered rules
// evaluate against the full pending change set.
type Service struct {
	store PersistentStore
	opts  serviceOptions
	nowFn func() time.Time
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	options := defaultServiceOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Service{
		store: store,
		opts:  options,
		nowFn: selectNowFunc(store, options.clock),
	}
}

// NewInMemoryService creates a service over a fresh in-memory store with the
// given rules engine. A nil engine gets an empty one.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	if engine == nil {
		engine = NewRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying persistent store.
func (s *Service) Store() PersistentStore { return s.store }

// RulesEngine returns the store's rules engine when the store exposes one.
func (s *Service) RulesEngine() *RulesEngine { return extractRulesEngine(s.store) }

// auditSpec maps an operation name to the entity kind and action recorded in
// audit entries. Operations outside this table are not audited.
type auditSpec struct {
	entity EntityType
	action Operation
}

var auditSpecs = map[string]auditSpec{
	"create_product_feature":    {EntityProductFeature, OperationCreate},
	"update_product_feature":    {EntityProductFeature, OperationUpdate},
	"delete_product_feature":    {EntityProductFeature, OperationDelete},
	"create_capability":         {EntityCapability, OperationCreate},
	"update_capability":         {EntityCapability, OperationUpdate},
	"delete_capability":         {EntityCapability, OperationDelete},
	"create_technical_function": {EntityTechnicalFunction, OperationCreate},
	"update_technical_function": {EntityTechnicalFunction, OperationUpdate},
	"delete_technical_function": {EntityTechnicalFunction, OperationDelete},
	"apply_document":            {},
	"export_document":           {},
}

func (s *Service) recordAuditSuccess(ctx context.Context, operation, entityID string, duration time.Duration) {
	spec, ok := auditSpecs[operation]
	if !ok {
		return
	}
	s.opts.audit.Record(ctx, AuditEntry{
		Operation: operation,
		Entity:    spec.entity,
		Action:    spec.action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.opts.clock.Now(),
	})
}

func (s *Service) recordAuditError(ctx context.Context, operation, entityID string, duration time.Duration, err error) {
	spec, ok := auditSpecs[operation]
	if !ok {
		return
	}
	s.opts.audit.Record(ctx, AuditEntry{
		Operation: operation,
		Entity:    spec.entity,
		Action:    spec.action,
		EntityID:  entityID,
		Status:    AuditStatusError,
		Error:     err.Error(),
		Duration:  duration,
		Timestamp: s.opts.clock.Now(),
	})
}

// run executes fn inside a store transaction wrapped with tracing, metrics,
// logging, and audit. entityID is evaluated after fn so it can report labels
// assigned during the transaction.
func (s *Service) run(ctx context.Context, operation string, entityID func() string, fn func(Transaction) error) (Report, error) {
	start := time.Now()
	ctx, span := s.opts.tracer.Start(ctx, operation)
	report, err := s.store.RunInTransaction(ctx, fn)
	duration := time.Since(start)
	span.End(err)
	s.opts.metrics.Observe(ctx, operation, err == nil, duration)

	id := ""
	if entityID != nil {
		id = entityID()
	}
	if err != nil {
		s.opts.logger.Error("operation failed", "operation", operation, "entity_id", id, "error", err)
		s.recordAuditError(ctx, operation, id, duration, err)
		return report, err
	}
	s.opts.logger.Debug("operation complete", "operation", operation, "entity_id", id, "duration", duration)
	s.recordAuditSuccess(ctx, operation, id, duration)
	return report, nil
}

// CreateProductFeature persists a new product feature.
func (s *Service) CreateProductFeature(ctx context.Context, pf ProductFeature) (ProductFeature, Report, error) {
	var created ProductFeature
	report, err := s.run(ctx, "create_product_feature", func() string { return created.Label }, func(tx Transaction) error {
		var err error
		created, err = tx.CreateProductFeature(pf)
		return err
	})
	return created, report, err
}

// UpdateProductFeature mutates a product feature identified by label.
func (s *Service) UpdateProductFeature(ctx context.Context, label string, mutator func(*ProductFeature) error) (ProductFeature, Report, error) {
	var updated ProductFeature
	report, err := s.run(ctx, "update_product_feature", func() string { return label }, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateProductFeature(label, mutator)
		return err
	})
	return updated, report, err
}

// DeleteProductFeature removes a product feature and prunes references to it.
func (s *Service) DeleteProductFeature(ctx context.Context, label string) (Report, error) {
	return s.run(ctx, "delete_product_feature", func() string { return label }, func(tx Transaction) error {
		return tx.DeleteProductFeature(label)
	})
}

// CreateCapability persists a new capability.
func (s *Service) CreateCapability(ctx context.Context, ca Capability) (Capability, Report, error) {
	var created Capability
	report, err := s.run(ctx, "create_capability", func() string { return created.Label }, func(tx Transaction) error {
		var err error
		created, err = tx.CreateCapability(ca)
		return err
	})
	return created, report, err
}

// UpdateCapability mutates a capability identified by label.
func (s *Service) UpdateCapability(ctx context.Context, label string, mutator func(*Capability) error) (Capability, Report, error) {
	var updated Capability
	report, err := s.run(ctx, "update_capability", func() string { return label }, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateCapability(label, mutator)
		return err
	})
	return updated, report, err
}

// DeleteCapability removes a capability and prunes references to it.
func (s *Service) DeleteCapability(ctx context.Context, label string) (Report, error) {
	return s.run(ctx, "delete_capability", func() string { return label }, func(tx Transaction) error {
		return tx.DeleteCapability(label)
	})
}

// CreateTechnicalFunction persists a new technical function.
func (s *Service) CreateTechnicalFunction(ctx context.Context, tf TechnicalFunction) (TechnicalFunction, Report, error) {
	var created TechnicalFunction
	report, err := s.run(ctx, "create_technical_function", func() string { return created.Label }, func(tx Transaction) error {
		var err error
		created, err = tx.CreateTechnicalFunction(tf)
		return err
	})
	return created, report, err
}

// UpdateTechnicalFunction mutates a technical function identified by label.
func (s *Service) UpdateTechnicalFunction(ctx context.Context, label string, mutator func(*TechnicalFunction) error) (TechnicalFunction, Report, error) {
	var updated TechnicalFunction
	report, err := s.run(ctx, "update_technical_function", func() string { return label }, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateTechnicalFunction(label, mutator)
		return err
	})
	return updated, report, err
}

// DeleteTechnicalFunction removes a technical function and prunes references to it.
func (s *Service) DeleteTechnicalFunction(ctx context.Context, label string) (Report, error) {
	return s.run(ctx, "delete_technical_function", func() string { return label }, func(tx Transaction) error {
		return tx.DeleteTechnicalFunction(label)
	})
}

// GetProductFeature reads a product feature by label.
func (s *Service) GetProductFeature(label string) (ProductFeature, bool) {
	return s.store.GetProductFeature(label)
}

// ListProductFeatures returns all product features sorted by label.
func (s *Service) ListProductFeatures() []ProductFeature {
	return s.store.ListProductFeatures()
}

// GetCapability reads a capability by label.
func (s *Service) GetCapability(label string) (Capability, bool) {
	return s.store.GetCapability(label)
}

// ListCapabilities returns all capabilities sorted by label.
func (s *Service) ListCapabilities() []Capability {
	return s.store.ListCapabilities()
}

// GetTechnicalFunction reads a technical function by label.
func (s *Service) GetTechnicalFunction(label string) (TechnicalFunction, bool) {
	return s.store.GetTechnicalFunction(label)
}

// ListTechnicalFunctions returns all technical functions sorted by label.
func (s *Service) ListTechnicalFunctions() []TechnicalFunction {
	return s.store.ListTechnicalFunctions()
}

// ErrNotFound is returned when a referenced entity does not exist.
type ErrNotFound struct {
	Entity EntityType
	Label  string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Label)
}
