// Package submission reads and writes submissions as CSV or Excel tables
// with one row per placement: id "NNN_i", then x, y and deg as strings
// prefixed with "s".
package submission

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/piwi3910/TreePack/internal/model"
)

// Header is the column order written by Encode.
var Header = []string{"id", "x", "y", "deg"}

// ColumnMapping maps semantic column roles to their indices in the data.
type ColumnMapping struct {
	ID  int
	X   int
	Y   int
	Deg int
}

// headerAliases maps canonical column names to their accepted aliases (all lowercase).
var headerAliases = map[string][]string{
	"id":  {"id", "row_id", "key"},
	"x":   {"x", "pos_x", "x_pos"},
	"y":   {"y", "pos_y", "y_pos"},
	"deg": {"deg", "angle", "rotation", "degrees", "theta"},
}

// DecodeOptions controls how strictly values are parsed.
type DecodeOptions struct {
	// Lenient accepts values without the "s" prefix.
	Lenient bool
}

// DetectColumns examines a header row and returns a ColumnMapping.
// Matching is case-insensitive. Without a recognizable header it returns
// the positional mapping id, x, y, deg and false.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := ColumnMapping{ID: -1, X: -1, Y: -1, Deg: -1}
	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range headerAliases {
			for _, alias := range aliases {
				if normalized != alias {
					continue
				}
				isHeader = true
				switch role {
				case "id":
					if mapping.ID == -1 {
						mapping.ID = i
					}
				case "x":
					if mapping.X == -1 {
						mapping.X = i
					}
				case "y":
					if mapping.Y == -1 {
						mapping.Y = i
					}
				case "deg":
					if mapping.Deg == -1 {
						mapping.Deg = i
					}
				}
			}
		}
	}
	if !isHeader {
		return ColumnMapping{ID: 0, X: 1, Y: 2, Deg: 3}, false
	}
	return mapping, true
}

// ParseValue parses one s-prefixed coordinate.
func ParseValue(cell string, opts DecodeOptions) (float64, error) {
	cell = strings.TrimSpace(cell)
	switch {
	case strings.HasPrefix(cell, "s"):
		cell = cell[1:]
	case opts.Lenient && strings.HasPrefix(cell, "S"):
		cell = cell[1:]
	case !opts.Lenient:
		return 0, fmt.Errorf("value %q must start with 's'", cell)
	}
	return strconv.ParseFloat(cell, 64)
}

// FormatValue writes v with the given number of decimals and the "s" prefix.
func FormatValue(v float64, decimals int) string {
	return "s" + strconv.FormatFloat(v, 'f', decimals, 64)
}

// FormatID returns the row id of placement idx in group n.
func FormatID(n, idx int) string {
	return fmt.Sprintf("%03d_%d", n, idx)
}

// ParseID splits a row id such as "007_3" into group size and index. Group
// sizes above model.MaxGroupSize are rejected.
func ParseID(id string) (int, int, error) {
	a, b, ok := strings.Cut(strings.TrimSpace(id), "_")
	if !ok {
		return 0, 0, fmt.Errorf("id %q is not of the form NNN_i", id)
	}
	n, err := strconv.Atoi(a)
	if err != nil {
		return 0, 0, fmt.Errorf("id %q has a bad group size", id)
	}
	idx, err := strconv.Atoi(b)
	if err != nil {
		return 0, 0, fmt.Errorf("id %q has a bad index", id)
	}
	if n < 1 || n > model.MaxGroupSize {
		return 0, 0, fmt.Errorf("id %q has group size outside 1..%d", id, model.MaxGroupSize)
	}
	if idx < 0 || idx >= n {
		return 0, 0, fmt.Errorf("id %q is out of range", id)
	}
	return n, idx, nil
}

// Decode reads a CSV submission.
func Decode(r io.Reader, opts DecodeOptions) (model.Submission, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return DecodeRows(rows, "line", opts)
}

// DecodeRows is the shared decode logic for CSV and Excel data. Every group
// present must hold indices 0..N-1 exactly once. Malformed rows are
// reported as ParticipantVisibleError.
func DecodeRows(rows [][]string, rowPrefix string, opts DecodeOptions) (model.Submission, error) {
	if len(rows) == 0 {
		return nil, model.NewParticipantVisibleError(0, "submission is empty")
	}

	mapping, hasHeader := DetectColumns(rows[0])
	start := 0
	if hasHeader {
		start = 1
		var missing []string
		if mapping.ID == -1 {
			missing = append(missing, "id")
		}
		if mapping.X == -1 {
			missing = append(missing, "x")
		}
		if mapping.Y == -1 {
			missing = append(missing, "y")
		}
		if mapping.Deg == -1 {
			missing = append(missing, "deg")
		}
		if len(missing) > 0 {
			return nil, model.NewParticipantVisibleError(0, "required columns not found in header: %s", strings.Join(missing, ", "))
		}
	}

	sub := make(model.Submission)
	seen := make(map[int][]bool)
	for i := start; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}
		label := fmt.Sprintf("%s %d", rowPrefix, i+1)

		n, idx, err := ParseID(getCell(row, mapping.ID))
		if err != nil {
			return nil, model.NewParticipantVisibleError(0, "%s: %v", label, err)
		}
		var vals [3]float64
		for k, col := range []int{mapping.X, mapping.Y, mapping.Deg} {
			v, err := ParseValue(getCell(row, col), opts)
			if err != nil {
				return nil, model.NewParticipantVisibleError(n, "%s: %v", label, err)
			}
			vals[k] = v
		}

		if _, ok := sub[n]; !ok {
			sub[n] = make(model.Group, n)
			seen[n] = make([]bool, n)
		}
		if seen[n][idx] {
			return nil, model.NewParticipantVisibleError(n, "%s: duplicate id %s", label, FormatID(n, idx))
		}
		seen[n][idx] = true
		sub[n][idx] = model.Placement{X: vals[0], Y: vals[1], Deg: vals[2]}
	}

	for n, mask := range seen {
		for idx, ok := range mask {
			if !ok {
				return nil, model.NewParticipantVisibleError(n, "missing id %s", FormatID(n, idx))
			}
		}
	}
	return sub, nil
}

// Encode writes sub as CSV, groups ascending, with decimals digits after
// the point. Angles are normalized into [0, 360).
func Encode(w io.Writer, sub model.Submission, decimals int) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(Rows(sub, decimals)); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// Rows renders sub as a header row followed by one row per placement.
func Rows(sub model.Submission, decimals int) [][]string {
	sizes := sub.Sizes()
	total := 0
	for _, n := range sizes {
		total += len(sub[n])
	}
	rows := make([][]string, 0, total+1)
	rows = append(rows, append([]string(nil), Header...))
	for _, n := range sizes {
		for idx, p := range sub[n].Rounded(decimals) {
			rows = append(rows, []string{
				FormatID(n, idx),
				FormatValue(p.X, decimals),
				FormatValue(p.Y, decimals),
				FormatValue(p.Deg, decimals),
			})
		}
	}
	return rows
}

// getCell safely retrieves a cell value from a row by column index.
func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// isEmptyRow returns true if the row has no meaningful content.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
