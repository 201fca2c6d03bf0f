package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// AUDIT ROWS
// =============================================================================

// AuditEvent is one sup gate decision as written to the audit log.
// Field names match the rows read back by the audit summarizer.
type AuditEvent struct {
	ID           string   `json:"id"`
	Timestamp    int64    `json:"ts"` // Unix milliseconds
	Mode         string   `json:"mode"`
	Reason       string   `json:"reason,omitempty"`
	DurationMs   float64  `json:"ms"`
	PIIPresent   bool     `json:"pii_present"`
	AbuseReasons []string `json:"abuse_reasons"`
	PageID       string   `json:"page_id,omitempty"`
}

const auditSuffix = "_audit.jsonl"

// AuditFiles lists the dated audit logs under dir, oldest first.
func AuditFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*"+auditSuffix))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// AuditLogger appends audit events as JSON lines.
type AuditLogger struct {
	mu   sync.Mutex
	path string
	file *os.File
	now  func() time.Time
}

// NewAuditLogger opens (or creates) the dated audit log under dir.
func NewAuditLogger(dir string) (*AuditLogger, error) {
	if dir == "" {
		return nil, fmt.Errorf("audit log directory required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	path := filepath.Join(dir, time.Now().Format("2006-01-02")+auditSuffix)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit log: %w", err)
	}
	return &AuditLogger{path: path, file: file, now: time.Now}, nil
}

// Path returns the file the logger appends to.
func (a *AuditLogger) Path() string {
	return a.path
}

// Log appends one event. Write failures are reported on the audit category
// and never returned; the audit trail is best-effort.
func (a *AuditLogger) Log(event AuditEvent) {
	if a == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp == 0 {
		event.Timestamp = a.now().UnixMilli()
	}
	if event.AbuseReasons == nil {
		event.AbuseReasons = []string{}
	}

	data, err := json.Marshal(event)
	if err != nil {
		AuditWarn("failed to marshal audit event: %v", err)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return
	}
	if _, err := a.file.Write(append(data, '\n')); err != nil {
		AuditWarn("failed to append audit event to %s: %v", a.path, err)
	}
}

// SupDecision records a sup gate mode with the time spent deciding.
func (a *AuditLogger) SupDecision(pageID, mode, reason string, elapsed time.Duration) {
	a.Log(AuditEvent{
		Mode:       mode,
		Reason:     reason,
		DurationMs: float64(elapsed.Microseconds()) / 1000,
		PageID:     pageID,
	})
}

// Close closes the audit log file.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}
