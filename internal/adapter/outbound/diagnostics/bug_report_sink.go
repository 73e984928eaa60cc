// Package diagnostics keeps bug reports for assets whose objects could not
// be parsed, so that the offending text can be attached to an issue.
package diagnostics

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"eventtracker/internal/application/common/slogger"
	"eventtracker/internal/port/outbound"
)

// DefaultMaxReports is the number of reports kept when no limit is configured.
const DefaultMaxReports = 5

const reportExt = ".txt"

type stackTracer interface {
	StackTrace() []byte
}

// BugReportSink writes one text file per report into a directory and stops
// accepting reports once the directory holds limit of them.
type BugReportSink struct {
	dir   string
	limit int

	mu    sync.Mutex
	count int
}

var _ outbound.DiagnosticSink = (*BugReportSink)(nil)

// NewBugReportSink creates a sink writing to dir. Reports already in dir
// count towards the limit.
func NewBugReportSink(dir string, limit int) *BugReportSink {
	if limit <= 0 {
		limit = DefaultMaxReports
	}
	s := &BugReportSink{dir: dir, limit: limit}
	s.count = len(s.Reports())
	return s
}

// Dir returns the report directory.
func (s *BugReportSink) Dir() string { return s.dir }

// IsFull reports whether further reports are dropped.
func (s *BugReportSink) IsFull() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count >= s.limit
}

// Report writes "<asset>_<n>.txt" holding the asset text followed by the
// error. It returns false when the sink is full or the file could not be
// written.
func (s *BugReportSink) Report(assetName string, content []byte, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count >= s.limit {
		return false
	}

	if werr := os.MkdirAll(s.dir, 0o755); werr != nil {
		slogger.ErrorNoCtx("Cannot create bug report directory", slogger.Fields{"dir": s.dir, "error": werr.Error()})
		return false
	}
	name, werr := s.writeNew(reportBaseName(assetName), formatReport(content, err))
	if werr != nil {
		slogger.ErrorNoCtx("Cannot write bug report", slogger.Fields{"file": name, "error": werr.Error()})
		return false
	}
	s.count++
	return true
}

// writeNew creates the first "<base>_<n>.txt" that does not exist yet,
// starting at the current report count. Existing reports are never replaced.
func (s *BugReportSink) writeNew(base string, data []byte) (string, error) {
	for n := s.count; ; n++ {
		name := fmt.Sprintf("%s_%d%s", base, n, reportExt)
		f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return name, err
		}
		_, werr := f.Write(data)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		return name, werr
	}
}

// Reports returns the report files currently in the directory.
func (s *BugReportSink) Reports() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), reportExt) {
			out = append(out, filepath.Join(s.dir, e.Name()))
		}
	}
	return out
}

func reportBaseName(assetName string) string {
	base := path.Base(filepath.ToSlash(assetName))
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		return "asset"
	}
	return base
}

func formatReport(content []byte, err error) []byte {
	var b strings.Builder
	b.Write(content)
	if len(content) > 0 && content[len(content)-1] != '\n' {
		b.WriteByte('\n')
	}
	b.WriteString("\n")
	if err == nil {
		return []byte(b.String())
	}

	fmt.Fprintf(&b, "%T\n%s\n", err, err.Error())

	var st stackTracer
	if errors.As(err, &st) && len(st.StackTrace()) > 0 {
		b.WriteString("\n")
		b.Write(st.StackTrace())
	}
	return []byte(b.String())
}
