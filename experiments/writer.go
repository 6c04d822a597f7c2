package experiments

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"roller/engine"
)

// Writer persists experiment records and session history under a
// timestamped directory.
type Writer struct {
	baseDir string
}

func NewWriter(root string) (*Writer, error) {
	// Create a subfolder named by current timestamp
	timestamp := time.Now().UTC().Format(time.RFC3339)
	baseDir := filepath.Join(root, timestamp)
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Writer{
		baseDir: baseDir,
	}, nil
}

func (w *Writer) BaseDir() string {
	return w.baseDir
}

func (w *Writer) WriteRunRecords(records []RunRecord) error {
	path := filepath.Join(w.baseDir, "run_records.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create run records file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	header := []string{"scenario", "iterations", "seed", "top_key", "top_success_rate", "top_score", "duration_ms"}
	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("failed to write run records header: %w", err)
	}

	for _, record := range records {
		row := []string{
			record.Scenario,
			strconv.Itoa(record.Iterations),
			strconv.FormatUint(record.Seed, 10),
			record.TopKey,
			strconv.FormatFloat(record.TopSuccessRate, 'f', 4, 64),
			strconv.FormatFloat(record.TopScore, 'f', 4, 64),
			strconv.FormatFloat(record.DurationMS, 'f', 2, 64),
		}
		err = writer.Write(row)
		if err != nil {
			return fmt.Errorf("failed to write run record row: %w", err)
		}
	}

	return nil
}

func (w *Writer) WriteSummaries(summaries []Summary) error {
	path := filepath.Join(w.baseDir, "summaries.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summaries file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	header := []string{"scenario", "iterations", "runs", "agreement", "mean_score", "stddev_score", "mean_success", "stddev_success"}
	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("failed to write summaries header: %w", err)
	}

	for _, s := range summaries {
		row := []string{
			s.Scenario,
			strconv.Itoa(s.Iterations),
			strconv.Itoa(s.Runs),
			strconv.FormatFloat(s.Agreement, 'f', 3, 64),
			strconv.FormatFloat(s.MeanScore, 'f', 4, 64),
			strconv.FormatFloat(s.StddevScore, 'f', 4, 64),
			strconv.FormatFloat(s.MeanSuccess, 'f', 4, 64),
			strconv.FormatFloat(s.StddevSuccess, 'f', 4, 64),
		}
		err = writer.Write(row)
		if err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	return nil
}

// WriteSessionHistory exports a rolling session's jump ledger.
func (w *Writer) WriteSessionHistory(history []engine.Jump) error {
	path := filepath.Join(w.baseDir, "session_history.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create session history file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	header := []string{"at", "action", "round_trip", "used", "observation"}
	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("failed to write session history header: %w", err)
	}

	for _, j := range history {
		obs := ""
		if j.Observed {
			obs = j.Obs.String()
		}
		row := []string{
			j.At.Format(time.RFC3339),
			j.Key,
			strconv.FormatFloat(j.Action.RoundTrip(), 'f', 0, 64),
			strconv.FormatFloat(j.Used, 'f', 0, 64),
			obs,
		}
		err = writer.Write(row)
		if err != nil {
			return fmt.Errorf("failed to write session history row: %w", err)
		}
	}

	return nil
}
