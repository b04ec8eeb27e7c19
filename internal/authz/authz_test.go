package authz

import (
	"context"
	"errors"
	"testing"

	"schoolorbit/backend/internal/feature"
	"schoolorbit/backend/internal/policy"
)

type staticRuntime struct {
	snapshot feature.Snapshot
	err      error
	loads    int
}

func (s *staticRuntime) LoadSnapshot(ctx context.Context) (feature.Snapshot, error) {
	s.loads++
	return s.snapshot, s.err
}

func testFacade(t *testing.T, rt *staticRuntime) *Facade {
	t.Helper()
	registry, err := feature.NewRegistry([]feature.Definition{
		{
			ID: "grades",
			Actions: []feature.Action{
				{Code: "grade:read", Conditions: []feature.Condition{{Type: feature.ConditionFeatureEnabled}}},
			},
		},
		{
			ID: "classes",
			Actions: []feature.Action{
				{Code: "class:read"},
			},
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return NewFacade(policy.NewEngine(registry), rt)
}

func TestAuthorize_Allowed(t *testing.T) {
	rt := &staticRuntime{snapshot: feature.Snapshot{
		"grades": {Enabled: true, States: map[string]bool{}},
	}}
	f := testFacade(t, rt)

	caller := Caller{UserID: "u1", Granted: []string{"grade:read"}}
	if err := f.Authorize(context.Background(), caller, "grade:read"); err != nil {
		t.Errorf("Authorize: %v", err)
	}
}

func TestAuthorize_NoGrantsShortCircuits(t *testing.T) {
	rt := &staticRuntime{}
	f := testFacade(t, rt)

	err := f.Authorize(context.Background(), Caller{UserID: "u1"}, "grade:read")
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("want ErrForbidden, got %v", err)
	}
	if rt.loads != 0 {
		t.Error("snapshot loaded for a grantless caller")
	}
}

func TestAuthorize_DeniedByPolicy(t *testing.T) {
	rt := &staticRuntime{snapshot: feature.Snapshot{
		"grades": {Enabled: false, States: map[string]bool{}},
	}}
	f := testFacade(t, rt)

	caller := Caller{UserID: "u1", Granted: []string{"grade:read"}}
	err := f.Authorize(context.Background(), caller, "grade:read")
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("want ErrForbidden, got %v", err)
	}
}

func TestAuthorize_SnapshotError(t *testing.T) {
	boom := errors.New("db down")
	rt := &staticRuntime{err: boom}
	f := testFacade(t, rt)

	caller := Caller{UserID: "u1", Granted: []string{"grade:read"}}
	if err := f.Authorize(context.Background(), caller, "grade:read"); !errors.Is(err, boom) {
		t.Errorf("want storage error, got %v", err)
	}
}

func TestEvaluate_SingleSnapshot(t *testing.T) {
	rt := &staticRuntime{snapshot: feature.Snapshot{
		"grades":  {Enabled: true, States: map[string]bool{}},
		"classes": {Enabled: true, States: map[string]bool{}},
	}}
	f := testFacade(t, rt)

	ev, err := f.Evaluate(context.Background(), Caller{UserID: "u1", Granted: []string{"grade:read", "class:read"}})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ev.Can("grade:read") || !ev.Can("class:read") {
		t.Error("expected both actions allowed")
	}
	if ev.Can("missing:action") {
		t.Error("unknown action allowed")
	}
	if rt.loads != 1 {
		t.Errorf("snapshot loads = %d, want 1", rt.loads)
	}
}
