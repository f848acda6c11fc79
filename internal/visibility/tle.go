package visibility

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// TLE is a satellite's two-line element set plus its display name.
type TLE struct {
	Name  string `json:"name"`
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
}

// Validate performs basic format checks on the element lines. The SGP4
// library aborts the process on malformed input, so lines are validated
// before they ever reach it.
func (t TLE) Validate() error {
	line1 := strings.TrimSpace(t.Line1)
	line2 := strings.TrimSpace(t.Line2)

	if len(line1) != 69 {
		return fmt.Errorf("tle %q: line1 length %d, expected 69", t.Name, len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("tle %q: line2 length %d, expected 69", t.Name, len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("tle %q: line1 must start with '1', got '%c'", t.Name, line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("tle %q: line2 must start with '2', got '%c'", t.Name, line2[0])
	}
	return nil
}

// Parse reads 3-line NORAD TLE format from r and returns the entries.
// Malformed entries are skipped with a warning log.
func Parse(r io.Reader, logger *slog.Logger) ([]TLE, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var entries []TLE
	for i := 0; i+2 < len(lines); {
		entry := TLE{Name: lines[i], Line1: lines[i+1], Line2: lines[i+2]}
		if err := entry.Validate(); err != nil {
			// Shift by one and retry: the name line may be missing.
			logger.Warn("skipping malformed TLE entry", "line_index", i, "name", entry.Name, "error", err)
			i++
			continue
		}
		entries = append(entries, entry)
		i += 3
	}
	return entries, nil
}
