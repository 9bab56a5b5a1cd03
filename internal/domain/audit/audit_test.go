package audit

import (
	"testing"
	"time"
)

func TestBuildBaseQuery(t *testing.T) {
	query, args := buildBaseQuery("SELECT COUNT(1)", Filter{Action: ActionReplace, EntityID: "r1"})
	want := "SELECT COUNT(1) FROM audit_events WHERE 1=1 AND action = $1 AND entity_id = $2"
	if query != want {
		t.Fatalf("unexpected query %q", query)
	}
	if len(args) != 2 || args[0] != ActionReplace || args[1] != "r1" {
		t.Fatalf("unexpected args %v", args)
	}

	query, args = buildBaseQuery("SELECT id", Filter{})
	if query != "SELECT id FROM audit_events WHERE 1=1" || len(args) != 0 {
		t.Fatalf("unexpected empty filter query %q %v", query, args)
	}
}

func TestBuildBaseQueryDateRange(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	query, args := buildBaseQuery("SELECT id", Filter{EntityType: "review_item", From: from, To: to})
	want := "SELECT id FROM audit_events WHERE 1=1 AND entity_type = $1 AND created_at >= $2 AND created_at < $3"
	if query != want {
		t.Fatalf("unexpected query %q", query)
	}
	if len(args) != 3 || args[1] != from || args[2] != to {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestMarshalOptional(t *testing.T) {
	b, err := marshalOptional(nil)
	if err != nil || b != nil {
		t.Fatalf("expected nil payload, got %q %v", b, err)
	}
	b, err = marshalOptional(map[string]int{"weight": 10})
	if err != nil || string(b) != `{"weight":10}` {
		t.Fatalf("unexpected payload %q %v", b, err)
	}
}
