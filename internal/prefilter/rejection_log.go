package prefilter

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pulseai/internal/entity"
	"pulseai/pkg/utils"
)

// RejectionLog is the append-only, line-structured log of dropped items.
// Appends are total-ordered within the process; readers parse independently.
type RejectionLog struct {
	path string
	mu   sync.Mutex
}

// NewRejectionLog creates a log writer for path, creating parent directories.
func NewRejectionLog(path string) (*RejectionLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &RejectionLog{path: path}, nil
}

// Path returns the log file location.
func (l *RejectionLog) Path() string {
	return l.path
}

// Append writes one rejection record and flushes it to disk.
func (l *RejectionLog) Append(rec entity.RejectionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open rejection log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(rec) + "\n"); err != nil {
		return fmt.Errorf("failed to append rejection record: %w", err)
	}
	return f.Sync()
}

// ReadSince returns all records with a timestamp at or after since,
// oldest first. Lines not starting with '[' are ignored.
func (l *RejectionLog) ReadSince(since time.Time) ([]entity.RejectionRecord, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open rejection log: %w", err)
	}
	defer f.Close()

	var records []entity.RejectionRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		rec, ok := ParseLine(scanner.Text())
		if !ok {
			continue
		}
		if rec.Timestamp.Before(since) {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rejection log: %w", err)
	}
	return records, nil
}

// FormatLine renders one record in the log line grammar:
// [ISO-UTC] REJECTED: reason=R category=C source=S title="T"
func FormatLine(rec entity.RejectionRecord) string {
	title := strings.ReplaceAll(rec.Title, `\`, `\\`)
	title = strings.ReplaceAll(title, `"`, `\"`)
	return fmt.Sprintf(`[%s] REJECTED: reason=%s category=%s source=%s title="%s"`,
		utils.FormatISO(rec.Timestamp),
		rec.Reason,
		rec.Category,
		rec.Source,
		title,
	)
}

// ParseLine parses one log line. It tolerates unknown trailing key=value
// pairs and rejects lines that do not start with '['.
func ParseLine(line string) (entity.RejectionRecord, bool) {
	var rec entity.RejectionRecord

	if !strings.HasPrefix(line, "[") {
		return rec, false
	}
	end := strings.Index(line, "]")
	if end < 0 {
		return rec, false
	}
	ts, err := time.Parse(time.RFC3339, line[1:end])
	if err != nil {
		return rec, false
	}
	rec.Timestamp = ts.UTC()

	rest := strings.TrimSpace(line[end+1:])
	const marker = "REJECTED:"
	if !strings.HasPrefix(rest, marker) {
		return rec, false
	}
	rest = strings.TrimSpace(rest[len(marker):])

	for rest != "" {
		eq := strings.Index(rest, "=")
		if eq < 0 {
			break
		}
		key := rest[:eq]
		rest = rest[eq+1:]

		var value string
		if strings.HasPrefix(rest, `"`) {
			closing := findClosingQuote(rest[1:])
			if closing < 0 {
				return rec, false
			}
			value = unescapeQuoted(rest[1 : closing+1])
			rest = strings.TrimSpace(rest[closing+2:])
		} else {
			sp := strings.IndexByte(rest, ' ')
			if sp < 0 {
				value, rest = rest, ""
			} else {
				value, rest = rest[:sp], strings.TrimSpace(rest[sp+1:])
			}
		}

		switch key {
		case "reason":
			rec.Reason = value
		case "category":
			rec.Category = value
		case "source":
			rec.Source = value
		case "title":
			rec.Title = value
		default:
			// Unknown keys are tolerated.
		}
	}

	if rec.Reason == "" {
		return rec, false
	}
	return rec, true
}

// unescapeQuoted resolves backslash escapes inside a quoted value.
func unescapeQuoted(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// findClosingQuote locates the first unescaped double quote in s.
func findClosingQuote(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == '"' {
			return i
		}
	}
	return -1
}
