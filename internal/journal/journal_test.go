package journal

import (
	"testing"
	"testing/fstest"

	"github.com/kozaktomas/face-touch/internal/constants"
)

func TestSchemaSteps(t *testing.T) {
	fsys := fstest.MapFS{
		"schema/10_views.sql": {Data: []byte("SELECT 10")},
		"schema/2_index.sql":  {Data: []byte("SELECT 2")},
		"schema/README.md":    {Data: []byte("notes")},
		"schema/1_tables.sql": {Data: []byte("SELECT 1")},
	}

	steps, err := schemaSteps(fsys)
	if err != nil {
		t.Fatalf("schemaSteps failed: %v", err)
	}

	want := []int{1, 2, 10}
	if len(steps) != len(want) {
		t.Fatalf("expected versions %v, got %v", want, steps)
	}
	for i := range want {
		if steps[i].version != want[i] {
			t.Errorf("steps[%d].version = %d, want %d", i, steps[i].version, want[i])
		}
	}
}

func TestSchemaSteps_Rejects(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
	}{
		{"no prefix", fstest.MapFS{"schema/tables.sql": {Data: []byte("SELECT 1")}}},
		{"zero version", fstest.MapFS{"schema/0_tables.sql": {Data: []byte("SELECT 1")}}},
		{"duplicate version", fstest.MapFS{
			"schema/1_tables.sql": {Data: []byte("SELECT 1")},
			"schema/1_index.sql":  {Data: []byte("SELECT 2")},
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := schemaSteps(tc.fsys); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestEmbeddedSchema(t *testing.T) {
	steps, err := schemaSteps(schemaFS)
	if err != nil {
		t.Fatalf("schemaSteps failed: %v", err)
	}
	if len(steps) == 0 || steps[0].file != "1_touch_events.sql" {
		t.Errorf("expected touch_events first, got %v", steps)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, constants.DefaultJournalLimit},
		{-5, constants.DefaultJournalLimit},
		{10, 10},
		{constants.MaxJournalLimit + 1, constants.MaxJournalLimit},
	}
	for _, tc := range tests {
		if got := ClampLimit(tc.in); got != tc.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
