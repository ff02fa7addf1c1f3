package research

import (
	"errors"
	"testing"
)

func TestStateMergeLastWriteWins(t *testing.T) {
	state := NewState()
	state.Merge(map[string]any{"analysts": []any{map[string]any{"name": "old"}}})
	state.Merge(map[string]any{"final_report": "X"})
	state.Merge(map[string]any{"analysts": []any{map[string]any{"name": "new"}}})

	analysts := state.Analysts()
	if len(analysts) != 1 || analysts[0].Name != "new" {
		t.Fatalf("expected latest analysts, got %+v", analysts)
	}
	if state.FinalReport() != "X" {
		t.Fatalf("expected final report X, got %q", state.FinalReport())
	}
}

func TestStateMergeReportsOmittedKeys(t *testing.T) {
	state := NewState()
	state.Merge(map[string]any{"topic": "t", "analysts": []any{}})

	omitted := state.Merge(map[string]any{"topic": "t2"})
	if len(omitted) != 1 || omitted[0] != "analysts" {
		t.Fatalf("expected analysts to be reported as omitted, got %v", omitted)
	}
	if _, ok := state["analysts"]; !ok {
		t.Fatal("shallow merge must keep keys absent from the update")
	}
}

func TestStateAnalystsDecodesRecords(t *testing.T) {
	state := State{"analysts": []any{
		map[string]any{"name": "A", "affiliation": "X", "role": "R", "description": "D"},
		"not-a-record",
		map[string]any{"name": "B"},
	}}

	analysts := state.Analysts()
	if len(analysts) != 2 {
		t.Fatalf("expected 2 analysts, got %d", len(analysts))
	}
	want := Analyst{Name: "A", Affiliation: "X", Role: "R", Description: "D"}
	if analysts[0] != want {
		t.Fatalf("unexpected first analyst: %+v", analysts[0])
	}
	if analysts[1].Name != "B" || analysts[1].Role != "" {
		t.Fatalf("unexpected second analyst: %+v", analysts[1])
	}
}

func TestStateMissingKeys(t *testing.T) {
	state := NewState()
	if state.Analysts() != nil {
		t.Fatal("expected no analysts")
	}
	if state.FinalReport() != "" {
		t.Fatal("expected empty report")
	}
}

func TestRunInputValidate(t *testing.T) {
	cases := []struct {
		name    string
		input   RunInput
		wantErr bool
	}{
		{"defaults", DefaultInput(), false},
		{"lower bound", NewRunInput("t", 1, "f"), false},
		{"upper bound", NewRunInput("t", 10, "f"), false},
		{"zero analysts", NewRunInput("t", 0, "f"), true},
		{"eleven analysts", NewRunInput("t", 11, "f"), true},
		{"blank topic", NewRunInput("  ", 3, "f"), false},
		{"blank feedback", NewRunInput("t", 3, ""), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.input.Validate()
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRunInputMapKeepsIntegerCount(t *testing.T) {
	payload := NewRunInput("Quantum Computing", 2, "Focus on hardware").Map()
	if v, ok := payload["max_analysts"].(int); !ok || v != 2 {
		t.Fatalf("expected integer max_analysts=2, got %#v", payload["max_analysts"])
	}
	if payload["human_analyst_feedback"] != "Focus on hardware" {
		t.Fatalf("unexpected feedback: %#v", payload["human_analyst_feedback"])
	}
}
