package health

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// File check outcomes.
const (
	FileCreated = "created"
	FileUpdated = "updated"
	FileError   = "error"
)

const (
	healthFileName  = "health.txt"
	journalFileName = "health_log.jsonl"
)

// FileCheck reports what happened to the health file on the mount path.
type FileCheck struct {
	MountPath  string `json:"mount_path"`
	HealthFile string `json:"health_file"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// Journal owns the mount path: a small health file rewritten on every check
// and an append-only JSON-lines journal rotated by size.
type Journal struct {
	mountPath   string
	service     string
	environment string

	mu  sync.Mutex // serialises health file rewrites
	log *lumberjack.Logger
}

// NewJournal creates a Journal rooted at mountPath.  Nothing touches the
// filesystem until the first check.
func NewJournal(mountPath, service, environment string) *Journal {
	return &Journal{
		mountPath:   mountPath,
		service:     service,
		environment: environment,
		log: &lumberjack.Logger{
			Filename:   filepath.Join(mountPath, journalFileName),
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     30, // days
		},
	}
}

// Touch makes sure the mount path exists and rewrites the health file.  The
// returned status is "created" on first write and "updated" afterwards.
func (j *Journal) Touch(now time.Time) (FileCheck, error) {
	path := filepath.Join(j.mountPath, healthFileName)
	fc := FileCheck{MountPath: j.mountPath, HealthFile: path}

	j.mu.Lock()
	defer j.mu.Unlock()

	fail := func(err error) (FileCheck, error) {
		fc.Status = FileError
		fc.Error = err.Error()
		return fc, err
	}

	if err := os.MkdirAll(j.mountPath, 0o755); err != nil {
		return fail(fmt.Errorf("create mount path: %w", err))
	}

	verb := "updated"
	fc.Status = FileUpdated
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		verb = "created"
		fc.Status = FileCreated
	}

	body := fmt.Sprintf("Health check file %s at: %s\nService: %s\nEnvironment: %s\n",
		verb, now.UTC().Format(time.RFC3339Nano), j.service, j.environment)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fail(fmt.Errorf("write health file: %w", err))
	}
	return fc, nil
}

// Append writes doc as one JSON line to the journal.
func (j *Journal) Append(doc any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}
	if err := os.MkdirAll(j.mountPath, 0o755); err != nil {
		return fmt.Errorf("create mount path: %w", err)
	}
	if _, err := j.log.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}

// Close releases the journal file.
func (j *Journal) Close() error {
	return j.log.Close()
}
