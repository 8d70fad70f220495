// Package gameid converts between contract game ids and the 1-based ids
// shown to users. Table #1 is contract game 0.
package gameid

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse reads a display id such as "#3" or "3" and returns the contract id.
func Parse(s string) (uint64, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if trimmed == "" {
		return 0, fmt.Errorf("game id is empty")
	}

	n, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid game id %q: must be a positive number", s)
	}
	if n == 0 {
		return 0, fmt.Errorf("invalid game id %q: tables are numbered from 1", s)
	}
	return n - 1, nil
}

// Display returns the user-facing label for a contract id.
func Display(id uint64) string {
	return "#" + strconv.FormatUint(id+1, 10)
}

// Validate checks that s is a well-formed display id.
func Validate(s string) error {
	_, err := Parse(s)
	return err
}
