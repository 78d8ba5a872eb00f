package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// HistoryLength is the number of lines kept when the history is saved.
const HistoryLength = 1000

// History is the line history shared by every prompt of a session.
type History struct {
	path  string
	lines []string
}

// LoadHistory reads the history file at path. A missing file yields an
// empty history; an empty path yields one that is never saved.
func LoadHistory(path string) (*History, error) {
	h := &History{path: path}
	if path == "" {
		return h, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return h, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := sc.Text(); strings.TrimSpace(line) != "" {
			h.lines = append(h.lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("history: read %s: %w", path, err)
	}
	return h, nil
}

func (h *History) Lines() []string { return h.lines }

// Add appends line unless it is blank or repeats the previous entry.
func (h *History) Add(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	if n := len(h.lines); n > 0 && h.lines[n-1] == line {
		return
	}
	h.lines = append(h.lines, line)
}

// Save writes the most recent HistoryLength lines back to disk.
func (h *History) Save() error {
	if h.path == "" {
		return nil
	}
	lines := h.lines
	if len(lines) > HistoryLength {
		lines = lines[len(lines)-HistoryLength:]
	}
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(h.path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	return nil
}
