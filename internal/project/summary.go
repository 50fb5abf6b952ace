package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// SummaryVersion is written into every run summary.
const SummaryVersion = "1.0.0"

// RunSummary records what a command did, for comparing runs later.
type RunSummary struct {
	Version   string    `json:"version"`
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	Inputs    []string  `json:"inputs"`
	Output    string    `json:"output,omitempty"`
	StartedAt time.Time `json:"started_at"`
	Elapsed   string    `json:"elapsed"`

	BaseScore     float64  `json:"base_score"`
	BackwardScore float64  `json:"backward_score,omitempty"`
	FinalScore    float64  `json:"final_score"`
	OfficialScore *float64 `json:"official_score,omitempty"` // nil when the output was not re-scored

	Refined   []int `json:"refined,omitempty"`
	Replaced  []int `json:"replaced,omitempty"`
	Fallbacks []int `json:"fallbacks,omitempty"`
}

// NewRunSummary starts a summary for command with a fresh ID.
func NewRunSummary(command string, inputs []string) RunSummary {
	return RunSummary{
		Version:   SummaryVersion,
		ID:        uuid.New().String()[:8],
		Command:   command,
		Inputs:    inputs,
		StartedAt: time.Now().UTC(),
	}
}

// Finish stamps the elapsed time.
func (s *RunSummary) Finish() {
	s.Elapsed = time.Since(s.StartedAt).Round(time.Millisecond).String()
}

// EncodeSummary renders s as indented JSON.
func EncodeSummary(s RunSummary) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run summary: %w", err)
	}
	return data, nil
}

// WriteSummary writes s as indented JSON, creating parent directories.
func WriteSummary(path string, s RunSummary) error {
	data, err := EncodeSummary(s)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create summary directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write summary file: %w", err)
	}
	return nil
}

// ReadSummary reads a summary written by WriteSummary.
func ReadSummary(path string) (RunSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunSummary{}, fmt.Errorf("failed to read summary file: %w", err)
	}
	var s RunSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return RunSummary{}, fmt.Errorf("failed to parse summary file: %w", err)
	}
	if s.Version == "" {
		return RunSummary{}, fmt.Errorf("invalid summary file: missing version field")
	}
	return s, nil
}

// HistoryPath is where a summary is archived under dir.
func HistoryPath(dir string, s RunSummary) string {
	return filepath.Join(dir, "history", s.StartedAt.Format("20060102-150405")+"-"+s.ID+".json")
}

// ListHistory returns archived summaries under dir, oldest first.
func ListHistory(dir string) ([]RunSummary, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "history", "*.json"))
	if err != nil {
		return nil, err
	}
	out := make([]RunSummary, 0, len(paths))
	for _, p := range paths {
		s, err := ReadSummary(p)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}
