package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/five82/dictate/internal/ring"
)

const maxLineBytes = 1024 * 1024

// Read returns at most maxLines from the end of the file at path, oldest
// first. maxLines <= 0 returns every line. A missing file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	lines, err := Tail(file, maxLines)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return lines, nil
}

// Tail scans r once and keeps the last maxLines lines.
func Tail(r io.Reader, maxLines int) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	if maxLines <= 0 {
		var all []string
		for scanner.Scan() {
			all = append(all, scanner.Text())
		}
		return all, scanner.Err()
	}

	buf := ring.New[string](maxLines)
	for scanner.Scan() {
		buf.Push(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return buf.Oldest(), nil
}

// Level returns the level word of a console-formatted line ("INF", "WRN",
// ...) or "" when the line carries none.
func Level(line string) string {
	fields := strings.Fields(line)
	// "2006-01-02 15:04:05 INF message"
	if len(fields) < 3 {
		return ""
	}
	switch lvl := fields[2]; lvl {
	case "TRC", "DBG", "INF", "WRN", "ERR", "FTL", "PNC":
		return lvl
	}
	return ""
}

// Filter keeps lines at or above minLevel. Lines without a level (stack
// traces, wrapped output) follow the verdict of the line before them.
func Filter(lines []string, minLevel string) []string {
	min := rank(minLevel)
	if min <= 0 {
		return lines
	}
	out := make([]string, 0, len(lines))
	keep := false
	for _, line := range lines {
		if lvl := Level(line); lvl != "" {
			keep = rank(lvl) >= min
		}
		if keep {
			out = append(out, line)
		}
	}
	return out
}

func rank(level string) int {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRC":
		return 1
	case "DBG":
		return 2
	case "INF":
		return 3
	case "WRN":
		return 4
	case "ERR":
		return 5
	case "FTL", "PNC":
		return 6
	}
	return 0
}
