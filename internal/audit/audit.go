// Package audit appends scan events to a newline-delimited JSON log. Soft
// failures are only reported here and in debug output.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/systmms/aicred/internal/logging"
	"github.com/systmms/aicred/pkg/credential"
)

// Event types.
const (
	EventScanCompleted = "scan_completed"
	EventSoftFailure   = "soft_failure"
)

// Event is one line of the audit log.
type Event struct {
	ID      string            `json:"id"`
	Time    time.Time         `json:"time"`
	Type    string            `json:"type"`
	ScanID  string            `json:"scan_id"`
	Scanner string            `json:"scanner,omitempty"`
	Path    string            `json:"path,omitempty"`
	Kind    string            `json:"kind,omitempty"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Logger writes audit events. It is safe for concurrent use.
type Logger struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
	now    func() time.Time
}

// New writes events to w.
func New(w io.Writer) *Logger {
	return &Logger{enc: json.NewEncoder(w), now: time.Now}
}

// Open appends events to the file at path, creating it with owner-only
// permissions.
func Open(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log %s: %w", path, err)
	}
	l := New(f)
	l.closer = f
	return l, nil
}

// Close closes the underlying file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// RecordScan writes one event per soft failure followed by a summary event,
// all sharing a fresh scan id, which it returns. Any raw value retained in
// result is scrubbed from the messages.
func (l *Logger) RecordScan(result *credential.ScanResult) (string, error) {
	scanID := uuid.NewString()
	secrets := rawValues(result)

	for _, f := range result.SoftFailures {
		err := l.write(Event{
			Type:    EventSoftFailure,
			ScanID:  scanID,
			Scanner: f.Scanner,
			Path:    f.Path,
			Kind:    f.Kind,
			Message: logging.Redact(f.Message, secrets),
		})
		if err != nil {
			return scanID, err
		}
	}

	return scanID, l.write(Event{
		Type:   EventScanCompleted,
		ScanID: scanID,
		Path:   result.HomeDirectory,
		Fields: map[string]string{
			"keys":                strconv.Itoa(len(result.Keys)),
			"config_instances":    strconv.Itoa(len(result.ConfigInstances)),
			"files_scanned":       strconv.Itoa(result.FilesScanned),
			"directories_scanned": strconv.Itoa(result.DirectoriesScanned),
			"soft_failures":       strconv.Itoa(len(result.SoftFailures)),
			"duration_ms":         strconv.FormatInt(result.Duration().Milliseconds(), 10),
		},
	})
}

func (l *Logger) write(e Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.ID = uuid.NewString()
	e.Time = l.now().UTC()
	if err := l.enc.Encode(e); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

func rawValues(result *credential.ScanResult) []string {
	var out []string
	for _, k := range result.Keys {
		if raw, ok := k.RawValue(); ok {
			out = append(out, raw)
		}
	}
	return out
}
