package domain

import "testing"

func TestResultMergeAndBlocking(t *testing.T) {
	var res Result
	if res.HasBlocking() {
		t.Fatalf("empty result should not block")
	}
	res.Merge(Result{})
	if len(res.Violations) != 0 {
		t.Fatalf("merging empty result should not add violations")
	}

	res.Merge(Result{Violations: []Violation{{Rule: "a", Severity: SeverityWarn}}})
	if res.HasBlocking() {
		t.Fatalf("warn-only result should not block")
	}
	res.Merge(Result{Violations: []Violation{{Rule: "b", Severity: SeverityBlock}}})
	if !res.HasBlocking() {
		t.Fatalf("expected blocking result")
	}
	if len(res.Violations) != 2 {
		t.Fatalf("expected 2 violations, got %d", len(res.Violations))
	}
}

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ValidationError{Field: "caption", Reason: "must not be empty"}, "invalid caption: must not be empty"},
		{NotFoundError{Entity: EntityPlant, ID: "plant-00000007"}, "plant plant-00000007 not found"},
		{AccessDeniedError{Role: RoleUser, View: ViewAdminPanel}, "role user may not access admin_panel"},
		{AggregationError{Generator: "engagement", Reason: "expected 30 points, got 29"}, "aggregation: engagement series invalid: expected 30 points, got 29"},
		{RuleViolationError{}, "transaction blocked by rules"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Errorf("got %q want %q", got, tc.want)
		}
	}
}
