package experiments

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"roller/engine"
	"roller/hole"
)

func TestRunConvergence(t *testing.T) {
	scenarios := []Scenario{{Name: "low_hole", TotalMin: 100, TotalMax: 200, MassUsed: 0}}
	records, summaries := RunConvergence(scenarios, []int{500, 2000}, 3, 2)

	if len(records) != 6 {
		t.Fatalf("expected 6 run records, got %d", len(records))
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	for _, s := range summaries {
		if s.Runs != 3 {
			t.Errorf("summary %s/%d has %d runs", s.Scenario, s.Iterations, s.Runs)
		}
		if s.Agreement < 1.0/3 || s.Agreement > 1 {
			t.Errorf("agreement out of range: %v", s.Agreement)
		}
		if s.MeanScore <= 0 {
			t.Errorf("a plannable scenario should score above zero, got %v", s.MeanScore)
		}
	}
}

func TestSummarizeEmptyCell(t *testing.T) {
	s := summarize("fresh", 1000, nil)
	if s.Runs != 0 || s.MeanScore != 0 {
		t.Errorf("empty cell should summarize to zeros, got %+v", s)
	}
}

func TestWriter(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	records := []RunRecord{{
		Scenario: "fresh", Iterations: 1000, Seed: 1,
		TopKey: "BS_HOT_HOT", TopSuccessRate: 0.97, TopScore: 0.81, DurationMS: 12.5,
	}}
	if err := w.WriteRunRecords(records); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteSummaries([]Summary{summarize("fresh", 1000, records)}); err != nil {
		t.Fatal(err)
	}

	history := []engine.Jump{{
		Key:      "BS_HOT_HOT",
		Action:   hole.Action{Out: 300, Back: 300},
		Obs:      hole.Shrink,
		Observed: true,
		Used:     600,
		At:       time.Date(2026, 8, 5, 12, 0, 0, 0, time.UTC),
	}}
	if err := w.WriteSessionHistory(history); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(w.BaseDir(), "session_history.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and one row, got %d rows", len(rows))
	}
	if rows[1][1] != "BS_HOT_HOT" || rows[1][4] != "shrink" {
		t.Errorf("unexpected history row: %v", rows[1])
	}
}
