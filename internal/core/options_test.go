package core

import (
	"context"
	"testing"
	"time"

	"roadmapcore/internal/infra/persistence/memory"
	"roadmapcore/pkg/domain"
)

type fakePersistentStore struct{}

func (*fakePersistentStore) RunInTransaction(_ context.Context, fn func(Transaction) error) (Report, error) {
	return Report{}, nil
}

func (*fakePersistentStore) View(context.Context, func(TransactionView) error) error { return nil }

func (*fakePersistentStore) GetProductFeature(string) (ProductFeature, bool) {
	return ProductFeature{}, false
}

func (*fakePersistentStore) ListProductFeatures() []ProductFeature { return nil }

func (*fakePersistentStore) GetCapability(string) (Capability, bool) { return Capability{}, false }

func (*fakePersistentStore) ListCapabilities() []Capability { return nil }

func (*fakePersistentStore) GetTechnicalFunction(string) (TechnicalFunction, bool) {
	return TechnicalFunction{}, false
}

func (*fakePersistentStore) ListTechnicalFunctions() []TechnicalFunction { return nil }

type providerStore struct {
	*fakePersistentStore
	engine *domain.RulesEngine
	now    func() time.Time
}

func (p *providerStore) RulesEngine() *domain.RulesEngine { return p.engine }

func (p *providerStore) NowFunc() func() time.Time { return p.now }

func TestClockFuncNowNilFallsBackToUTCTime(t *testing.T) {
	got := ClockFunc(nil).Now()
	if got.IsZero() {
		t.Fatal("expected non-zero time from nil ClockFunc")
	}
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %s", got.Location())
	}
}

func TestClockFuncNowDelegatesToFunction(t *testing.T) {
	expected := time.Date(2024, 7, 4, 12, 34, 56, 0, time.FixedZone("offset", -5*3600))
	got := ClockFunc(func() time.Time { return expected }).Now()
	if !got.Equal(expected.UTC()) {
		t.Fatalf("expected %s, got %s", expected.UTC(), got)
	}
}

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	logger := noopLogger{}
	logger.Debug("msg", "key", "value")
	logger.Info("msg", "key", "value")
	logger.Warn("msg", "key", "value")
	logger.Error("msg", "key", "value")
}

func TestExtractRulesEngine(t *testing.T) {
	engine := domain.NewRulesEngine()
	store := memory.NewStore(engine)
	if got := extractRulesEngine(store); got != engine {
		t.Fatalf("expected engine pointer, got %v", got)
	}
	if extractRulesEngine(&fakePersistentStore{}) != nil {
		t.Fatal("expected nil for stores without RulesEngine provider")
	}
}

func TestSelectNowFuncPrefersStoreProvider(t *testing.T) {
	expected := time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("cet", 3600))
	store := &providerStore{
		fakePersistentStore: &fakePersistentStore{},
		engine:              domain.NewRulesEngine(),
		now:                 func() time.Time { return expected },
	}
	nowFn := selectNowFunc(store, nil)
	if got := nowFn(); !got.Equal(expected.UTC()) {
		t.Fatalf("expected store now func to be used, got %s", got)
	}
}

func TestSelectNowFuncFallsBackToClock(t *testing.T) {
	expected := time.Date(2030, 5, 6, 7, 8, 9, 0, time.UTC)
	clock := ClockFunc(func() time.Time { return expected })
	store := &providerStore{
		fakePersistentStore: &fakePersistentStore{},
		engine:              domain.NewRulesEngine(),
	}
	nowFn := selectNowFunc(store, clock)
	if got := nowFn(); !got.Equal(expected) {
		t.Fatalf("expected clock fallback, got %s", got)
	}
}

func TestSelectNowFuncDefaultsToSystemUTC(t *testing.T) {
	nowFn := selectNowFunc(&fakePersistentStore{}, nil)
	got := nowFn()
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC time, got %s", got.Location())
	}
	if time.Since(got) > time.Second || time.Since(got) < -time.Second {
		t.Fatalf("expected near-current time, got %s", got)
	}
}

func TestServiceOptionsIgnoreNil(t *testing.T) {
	opts := defaultServiceOptions()
	WithLogger(nil)(&opts)
	WithClock(nil)(&opts)
	WithMetricsRecorder(nil)(&opts)
	WithTracer(nil)(&opts)
	WithAuditRecorder(nil)(&opts)
	if opts.logger == nil || opts.clock == nil || opts.metrics == nil || opts.tracer == nil || opts.audit == nil {
		t.Fatal("expected defaults to survive nil options")
	}
}
