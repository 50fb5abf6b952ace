package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParseGroupList parses a selection such as "1-20,35,40-42" into sorted,
// de-duplicated group sizes. An empty string selects 1..maxN.
func ParseGroupList(list string, maxN int) ([]int, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		all := make([]int, maxN)
		for i := range all {
			all[i] = i + 1
		}
		return all, nil
	}

	seen := make(map[int]bool)
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, err := parseRange(part)
		if err != nil {
			return nil, err
		}
		if lo < 1 || hi > maxN || lo > hi {
			return nil, fmt.Errorf("%w: %q outside 1..%d", ErrInvalidGroupList, part, maxN)
		}
		for n := lo; n <= hi; n++ {
			seen[n] = true
		}
	}

	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Ints(out)
	return out, nil
}

func parseRange(part string) (int, int, error) {
	if a, b, ok := strings.Cut(part, "-"); ok {
		lo, err := strconv.Atoi(strings.TrimSpace(a))
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidGroupList, part)
		}
		hi, err := strconv.Atoi(strings.TrimSpace(b))
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidGroupList, part)
		}
		return lo, hi, nil
	}
	n, err := strconv.Atoi(part)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidGroupList, part)
	}
	return n, n, nil
}
