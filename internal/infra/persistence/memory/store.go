// Package memory provides an in-memory implementation of the roadmap
// persistence store used for tests and ephemeral environments.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"roadmapcore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// ProductFeature aliases domain.ProductFeature for in-memory persistence operations.
	ProductFeature = domain.ProductFeature
	// Capability aliases domain.Capability.
	Capability = domain.Capability
	// TechnicalFunction aliases domain.TechnicalFunction.
	TechnicalFunction = domain.TechnicalFunction
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Report aliases domain.Report summarizing rule evaluation.
	Report = domain.Report
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

type memoryState struct {
	features     map[string]ProductFeature
	capabilities map[string]Capability
	functions    map[string]TechnicalFunction
}

// Snapshot captures a point-in-time clone of the store state, keyed by label.
type Snapshot struct {
	ProductFeatures    map[string]ProductFeature    `json:"product_features"`
	Capabilities       map[string]Capability        `json:"capabilities"`
	TechnicalFunctions map[string]TechnicalFunction `json:"technical_functions"`
}

func newMemoryState() memoryState {
	return memoryState{
		features:     make(map[string]ProductFeature),
		capabilities: make(map[string]Capability),
		functions:    make(map[string]TechnicalFunction),
	}
}

func (state memoryState) clone() memoryState {
	out := memoryState{
		features:     make(map[string]ProductFeature, len(state.features)),
		capabilities: make(map[string]Capability, len(state.capabilities)),
		functions:    make(map[string]TechnicalFunction, len(state.functions)),
	}
	for k, v := range state.features {
		out.features[k] = domain.CloneProductFeature(v)
	}
	for k, v := range state.capabilities {
		out.capabilities[k] = domain.CloneCapability(v)
	}
	for k, v := range state.functions {
		out.functions[k] = domain.CloneTechnicalFunction(v)
	}
	return out
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		ProductFeatures:    make(map[string]ProductFeature, len(state.features)),
		Capabilities:       make(map[string]Capability, len(state.capabilities)),
		TechnicalFunctions: make(map[string]TechnicalFunction, len(state.functions)),
	}
	for k, v := range state.features {
		s.ProductFeatures[k] = domain.CloneProductFeature(v)
	}
	for k, v := range state.capabilities {
		s.Capabilities[k] = domain.CloneCapability(v)
	}
	for k, v := range state.functions {
		s.TechnicalFunctions[k] = domain.CloneTechnicalFunction(v)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.ProductFeatures {
		state.features[k] = domain.CloneProductFeature(v)
	}
	for k, v := range s.Capabilities {
		state.capabilities[k] = domain.CloneCapability(v)
	}
	for k, v := range s.TechnicalFunctions {
		state.functions[k] = domain.CloneTechnicalFunction(v)
	}
	return state
}

// migrateSnapshot normalizes snapshots loaded from durable backends: nil maps
// become empty, entity labels realign with their map keys, and readiness
// levels are clamped into the valid TRL range.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.ProductFeatures == nil {
		snapshot.ProductFeatures = map[string]ProductFeature{}
	}
	if snapshot.Capabilities == nil {
		snapshot.Capabilities = map[string]Capability{}
	}
	if snapshot.TechnicalFunctions == nil {
		snapshot.TechnicalFunctions = map[string]TechnicalFunction{}
	}
	for label, pf := range snapshot.ProductFeatures {
		pf.Label = label
		pf.CurrentTRL = clampTRL(pf.CurrentTRL)
		snapshot.ProductFeatures[label] = pf
	}
	for label, ca := range snapshot.Capabilities {
		ca.Label = label
		ca.CurrentTRL = clampTRL(ca.CurrentTRL)
		snapshot.Capabilities[label] = ca
	}
	for label, tf := range snapshot.TechnicalFunctions {
		tf.Label = label
		tf.CurrentTRL = clampTRL(tf.CurrentTRL)
		if tf.DueDates == nil {
			tf.DueDates = map[string]int{}
		}
		snapshot.TechnicalFunctions[label] = tf
	}
	return snapshot
}

func clampTRL(level int) int {
	if level < domain.TRLBaseline {
		return domain.TRLBaseline
	}
	if level > domain.TRLMax {
		return domain.TRLMax
	}
	return level
}

// Store provides an in-memory transactional store for the roadmap domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc overrides the time provider, primarily for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListProductFeatures returns all product features within the transaction snapshot.
func (v transactionView) ListProductFeatures() []ProductFeature {
	out := make([]ProductFeature, 0, len(v.state.features))
	for _, pf := range v.state.features {
		out = append(out, domain.CloneProductFeature(pf))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// ListCapabilities returns all capabilities within the transaction snapshot.
func (v transactionView) ListCapabilities() []Capability {
	out := make([]Capability, 0, len(v.state.capabilities))
	for _, ca := range v.state.capabilities {
		out = append(out, domain.CloneCapability(ca))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// ListTechnicalFunctions returns all technical functions within the transaction snapshot.
func (v transactionView) ListTechnicalFunctions() []TechnicalFunction {
	out := make([]TechnicalFunction, 0, len(v.state.functions))
	for _, tf := range v.state.functions {
		out = append(out, domain.CloneTechnicalFunction(tf))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// FindProductFeature retrieves a product feature by label from the snapshot.
func (v transactionView) FindProductFeature(label string) (ProductFeature, bool) {
	pf, ok := v.state.features[label]
	if !ok {
		return ProductFeature{}, false
	}
	return domain.CloneProductFeature(pf), true
}

// FindCapability retrieves a capability by label from the snapshot.
func (v transactionView) FindCapability(label string) (Capability, bool) {
	ca, ok := v.state.capabilities[label]
	if !ok {
		return Capability{}, false
	}
	return domain.CloneCapability(ca), true
}

// FindTechnicalFunction retrieves a technical function by label from the snapshot.
func (v transactionView) FindTechnicalFunction(label string) (TechnicalFunction, bool) {
	tf, ok := v.state.functions[label]
	if !ok {
		return TechnicalFunction{}, false
	}
	return domain.CloneTechnicalFunction(tf), true
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Report{}, err
	}

	var report Report
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		rep, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Report{}, err
		}
		report = rep
		if rep.HasBlocking() {
			return rep, domain.RuleViolationError{Report: rep}
		}
	}

	s.state = tx.state
	return report, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// CreateProductFeature inserts a new product feature keyed by label.
func (tx *transaction) CreateProductFeature(pf ProductFeature) (ProductFeature, error) {
	if pf.Label == "" {
		return ProductFeature{}, fmt.Errorf("product feature label is required")
	}
	if _, exists := tx.state.features[pf.Label]; exists {
		return ProductFeature{}, fmt.Errorf("product feature %q already exists", pf.Label)
	}
	if pf.ID == "" {
		pf.ID = tx.store.newID()
	}
	pf.CreatedAt = tx.now
	pf.UpdatedAt = tx.now
	pf.CurrentTRL = clampTRL(pf.CurrentTRL)
	tx.state.features[pf.Label] = domain.CloneProductFeature(pf)
	tx.recordChange(Change{Entity: domain.EntityProductFeature, Action: domain.OperationCreate, After: domain.CloneProductFeature(pf)})
	return domain.CloneProductFeature(pf), nil
}

// UpdateProductFeature mutates an existing product feature.
func (tx *transaction) UpdateProductFeature(label string, mutator func(*ProductFeature) error) (ProductFeature, error) {
	current, ok := tx.state.features[label]
	if !ok {
		return ProductFeature{}, fmt.Errorf("product feature %q not found", label)
	}
	before := domain.CloneProductFeature(current)
	if err := mutator(&current); err != nil {
		return ProductFeature{}, err
	}
	current.Label = label
	current.UpdatedAt = tx.now
	current.CurrentTRL = clampTRL(current.CurrentTRL)
	tx.state.features[label] = domain.CloneProductFeature(current)
	tx.recordChange(Change{Entity: domain.EntityProductFeature, Action: domain.OperationUpdate, Before: before, After: domain.CloneProductFeature(current)})
	return domain.CloneProductFeature(current), nil
}

// DeleteProductFeature removes a product feature and prunes links pointing at it.
func (tx *transaction) DeleteProductFeature(label string) error {
	current, ok := tx.state.features[label]
	if !ok {
		return fmt.Errorf("product feature %q not found", label)
	}
	delete(tx.state.features, label)
	for caLabel, ca := range tx.state.capabilities {
		if pruned, changed := removeLabel(ca.ProductFeatures, label); changed {
			ca.ProductFeatures = pruned
			tx.state.capabilities[caLabel] = ca
		}
	}
	for tfLabel, tf := range tx.state.functions {
		changedAny := false
		if pruned, changed := removeLabel(tf.ProductFeatureDependencies, label); changed {
			tf.ProductFeatureDependencies = pruned
			changedAny = true
		}
		if tf.PrimaryProductFeature == label {
			tf.PrimaryProductFeature = ""
			changedAny = true
		}
		if changedAny {
			tx.state.functions[tfLabel] = tf
		}
	}
	for pfLabel, pf := range tx.state.features {
		if pruned, changed := removeLabel(pf.Dependencies, label); changed {
			pf.Dependencies = pruned
			tx.state.features[pfLabel] = pf
		}
	}
	tx.recordChange(Change{Entity: domain.EntityProductFeature, Action: domain.OperationDelete, Before: domain.CloneProductFeature(current)})
	return nil
}

// CreateCapability inserts a new capability keyed by label.
func (tx *transaction) CreateCapability(ca Capability) (Capability, error) {
	if ca.Label == "" {
		return Capability{}, fmt.Errorf("capability label is required")
	}
	if _, exists := tx.state.capabilities[ca.Label]; exists {
		return Capability{}, fmt.Errorf("capability %q already exists", ca.Label)
	}
	if ca.ID == "" {
		ca.ID = tx.store.newID()
	}
	ca.CreatedAt = tx.now
	ca.UpdatedAt = tx.now
	ca.CurrentTRL = clampTRL(ca.CurrentTRL)
	tx.state.capabilities[ca.Label] = domain.CloneCapability(ca)
	tx.recordChange(Change{Entity: domain.EntityCapability, Action: domain.OperationCreate, After: domain.CloneCapability(ca)})
	return domain.CloneCapability(ca), nil
}

// UpdateCapability mutates an existing capability.
func (tx *transaction) UpdateCapability(label string, mutator func(*Capability) error) (Capability, error) {
	current, ok := tx.state.capabilities[label]
	if !ok {
		return Capability{}, fmt.Errorf("capability %q not found", label)
	}
	before := domain.CloneCapability(current)
	if err := mutator(&current); err != nil {
		return Capability{}, err
	}
	current.Label = label
	current.UpdatedAt = tx.now
	current.CurrentTRL = clampTRL(current.CurrentTRL)
	tx.state.capabilities[label] = domain.CloneCapability(current)
	tx.recordChange(Change{Entity: domain.EntityCapability, Action: domain.OperationUpdate, Before: before, After: domain.CloneCapability(current)})
	return domain.CloneCapability(current), nil
}

// DeleteCapability removes a capability and prunes links pointing at it.
func (tx *transaction) DeleteCapability(label string) error {
	current, ok := tx.state.capabilities[label]
	if !ok {
		return fmt.Errorf("capability %q not found", label)
	}
	delete(tx.state.capabilities, label)
	for pfLabel, pf := range tx.state.features {
		if pruned, changed := removeLabel(pf.CapabilitiesRequired, label); changed {
			pf.CapabilitiesRequired = pruned
			tx.state.features[pfLabel] = pf
		}
	}
	for tfLabel, tf := range tx.state.functions {
		if pruned, changed := removeLabel(tf.Capabilities, label); changed {
			tf.Capabilities = pruned
			tx.state.functions[tfLabel] = tf
		}
	}
	tx.recordChange(Change{Entity: domain.EntityCapability, Action: domain.OperationDelete, Before: domain.CloneCapability(current)})
	return nil
}

// CreateTechnicalFunction inserts a new technical function keyed by label.
func (tx *transaction) CreateTechnicalFunction(tf TechnicalFunction) (TechnicalFunction, error) {
	if tf.Label == "" {
		return TechnicalFunction{}, fmt.Errorf("technical function label is required")
	}
	if _, exists := tx.state.functions[tf.Label]; exists {
		return TechnicalFunction{}, fmt.Errorf("technical function %q already exists", tf.Label)
	}
	if tf.ID == "" {
		tf.ID = tx.store.newID()
	}
	tf.CreatedAt = tx.now
	tf.UpdatedAt = tx.now
	tf.CurrentTRL = clampTRL(tf.CurrentTRL)
	if tf.DueDates == nil {
		tf.DueDates = map[string]int{}
	}
	tx.state.functions[tf.Label] = domain.CloneTechnicalFunction(tf)
	tx.recordChange(Change{Entity: domain.EntityTechnicalFunction, Action: domain.OperationCreate, After: domain.CloneTechnicalFunction(tf)})
	return domain.CloneTechnicalFunction(tf), nil
}

// UpdateTechnicalFunction mutates an existing technical function.
func (tx *transaction) UpdateTechnicalFunction(label string, mutator func(*TechnicalFunction) error) (TechnicalFunction, error) {
	current, ok := tx.state.functions[label]
	if !ok {
		return TechnicalFunction{}, fmt.Errorf("technical function %q not found", label)
	}
	before := domain.CloneTechnicalFunction(current)
	if err := mutator(&current); err != nil {
		return TechnicalFunction{}, err
	}
	current.Label = label
	current.UpdatedAt = tx.now
	current.CurrentTRL = clampTRL(current.CurrentTRL)
	tx.state.functions[label] = domain.CloneTechnicalFunction(current)
	tx.recordChange(Change{Entity: domain.EntityTechnicalFunction, Action: domain.OperationUpdate, Before: before, After: domain.CloneTechnicalFunction(current)})
	return domain.CloneTechnicalFunction(current), nil
}

// DeleteTechnicalFunction removes a technical function and prunes links pointing at it.
func (tx *transaction) DeleteTechnicalFunction(label string) error {
	current, ok := tx.state.functions[label]
	if !ok {
		return fmt.Errorf("technical function %q not found", label)
	}
	delete(tx.state.functions, label)
	for caLabel, ca := range tx.state.capabilities {
		if pruned, changed := removeLabel(ca.TechnicalFunctions, label); changed {
			ca.TechnicalFunctions = pruned
			tx.state.capabilities[caLabel] = ca
		}
	}
	tx.recordChange(Change{Entity: domain.EntityTechnicalFunction, Action: domain.OperationDelete, Before: domain.CloneTechnicalFunction(current)})
	return nil
}

// FindProductFeature exposes product feature lookup within the transaction scope.
func (tx *transaction) FindProductFeature(label string) (ProductFeature, bool) {
	pf, ok := tx.state.features[label]
	if !ok {
		return ProductFeature{}, false
	}
	return domain.CloneProductFeature(pf), true
}

// FindCapability exposes capability lookup within the transaction scope.
func (tx *transaction) FindCapability(label string) (Capability, bool) {
	ca, ok := tx.state.capabilities[label]
	if !ok {
		return Capability{}, false
	}
	return domain.CloneCapability(ca), true
}

// FindTechnicalFunction exposes technical function lookup within the transaction scope.
func (tx *transaction) FindTechnicalFunction(label string) (TechnicalFunction, bool) {
	tf, ok := tx.state.functions[label]
	if !ok {
		return TechnicalFunction{}, false
	}
	return domain.CloneTechnicalFunction(tf), true
}

// FindProductFeatureByName falls back to exact name matching, for documents
// authored against display names. Labels win over names when both exist.
func (tx *transaction) FindProductFeatureByName(name string) (ProductFeature, bool) {
	for _, label := range sortedFeatureLabels(tx.state.features) {
		if pf := tx.state.features[label]; pf.Name == name {
			return domain.CloneProductFeature(pf), true
		}
	}
	return ProductFeature{}, false
}

// FindCapabilityByName falls back to exact name matching.
func (tx *transaction) FindCapabilityByName(name string) (Capability, bool) {
	for _, label := range sortedCapabilityLabels(tx.state.capabilities) {
		if ca := tx.state.capabilities[label]; ca.Name == name {
			return domain.CloneCapability(ca), true
		}
	}
	return Capability{}, false
}

// FindTechnicalFunctionByName falls back to exact name matching.
func (tx *transaction) FindTechnicalFunctionByName(name string) (TechnicalFunction, bool) {
	for _, label := range sortedFunctionLabels(tx.state.functions) {
		if tf := tx.state.functions[label]; tf.Name == name {
			return domain.CloneTechnicalFunction(tf), true
		}
	}
	return TechnicalFunction{}, false
}

// Read helpers ---------------------------------------------------------------

// GetProductFeature retrieves a product feature by label from committed state.
func (s *Store) GetProductFeature(label string) (ProductFeature, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pf, ok := s.state.features[label]
	if !ok {
		return ProductFeature{}, false
	}
	return domain.CloneProductFeature(pf), true
}

// ListProductFeatures returns all product features from committed state, label-sorted.
func (s *Store) ListProductFeatures() []ProductFeature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListProductFeatures()
}

// GetCapability retrieves a capability by label from committed state.
func (s *Store) GetCapability(label string) (Capability, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ca, ok := s.state.capabilities[label]
	if !ok {
		return Capability{}, false
	}
	return domain.CloneCapability(ca), true
}

// ListCapabilities returns all capabilities from committed state, label-sorted.
func (s *Store) ListCapabilities() []Capability {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListCapabilities()
}

// GetTechnicalFunction retrieves a technical function by label from committed state.
func (s *Store) GetTechnicalFunction(label string) (TechnicalFunction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tf, ok := s.state.functions[label]
	if !ok {
		return TechnicalFunction{}, false
	}
	return domain.CloneTechnicalFunction(tf), true
}

// ListTechnicalFunctions returns all technical functions from committed state, label-sorted.
func (s *Store) ListTechnicalFunctions() []TechnicalFunction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListTechnicalFunctions()
}

func removeLabel(set []string, label string) ([]string, bool) {
	for i, v := range set {
		if v == label {
			return append(set[:i:i], set[i+1:]...), true
		}
	}
	return set, false
}

func sortedFeatureLabels(m map[string]ProductFeature) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedCapabilityLabels(m map[string]Capability) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedFunctionLabels(m map[string]TechnicalFunction) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
