package submission

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"

	"github.com/piwi3910/TreePack/internal/model"
)

// LoadFile reads a submission from path, choosing the codec by extension.
func LoadFile(path string, opts DecodeOptions) (model.Submission, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return DecodeXLSX(path, opts)
	case ".csv", "":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open submission: %w", err)
		}
		defer f.Close()
		sub, err := Decode(f, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return sub, nil
	default:
		return nil, fmt.Errorf("unsupported submission format: %s", filepath.Ext(path))
	}
}

// SaveFile writes sub to path, creating parent directories as needed.
func SaveFile(path string, sub model.Submission, decimals int) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".xlsx" {
		return EncodeXLSX(path, sub, decimals)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	if err := Encode(f, sub, decimals); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write submission: %w", err)
	}
	return os.Rename(tmp, path)
}

// ExpandInputs resolves glob patterns into a list of files sorted in
// natural order, so "run2.csv" comes before "run10.csv". Object store URLs
// are passed through untouched.
func ExpandInputs(patterns []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, p := range patterns {
		if strings.HasPrefix(p, "s3://") {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
			continue
		}
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("bad input pattern %q: %w", p, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", p)
		}
		sort.Sort(natural.StringSlice(matches))
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out, nil
}
