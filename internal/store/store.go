package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"trade-guard/internal/core"
)

// ExecutionRecord is one line of the execution ledger: everything needed to
// reconstruct what was proposed, how validation changed it, and what the
// gateway answered.
type ExecutionRecord struct {
	Time            time.Time       `json:"time"`
	InstanceID      string          `json:"instance_id,omitempty"`
	Pair            string          `json:"pair"`
	Side            core.Side       `json:"side"`
	Status          string          `json:"status"`
	RequestedAmount decimal.Decimal `json:"requested_amount"`
	ExecutedAmount  decimal.Decimal `json:"executed_amount,omitempty"`
	Adjusted        bool            `json:"adjusted,omitempty"`
	TransactionID   string          `json:"transaction_id,omitempty"`
	ErrorKind       core.ErrorKind  `json:"error_kind,omitempty"`
	RawMessage      string          `json:"raw_message,omitempty"`
	Reason          string          `json:"reason,omitempty"`
}

type RuntimeStatus struct {
	InstanceID string    `json:"instance_id"`
	PID        int       `json:"pid"`
	State      string    `json:"state"`
	StartedAt  time.Time `json:"started_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	LastError  string    `json:"last_error,omitempty"`
}

// Store persists the execution ledger and runtime status under a state
// directory. Ledger files are append-only JSONL, one file per UTC day;
// runtime status is a single JSON document replaced atomically.
type Store struct {
	root   string
	logger *zap.Logger
	mu     sync.Mutex
}

func New(root string, logger *zap.Logger) (*Store, error) {
	if root == "" {
		return nil, errors.New("state dir required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root, logger: logger}, nil
}

func (s *Store) AppendExecution(record ExecutionRecord) error {
	if record.Time.IsZero() {
		record.Time = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.root, "executions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	date := record.Time.UTC().Format("2006-01-02")
	path := filepath.Join(dir, date+".jsonl")
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Sync()
}

// ReadExecutions loads the ledger for one UTC day. A missing file is an
// empty day, not an error; unparseable lines are skipped.
func (s *Store) ReadExecutions(date string) ([]ExecutionRecord, error) {
	path := filepath.Join(s.root, "executions", date+".jsonl")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var records []ExecutionRecord
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 2*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var record ExecutionRecord
		if err := json.Unmarshal(line, &record); err != nil {
			s.logger.Warn("skipping corrupt ledger line", zap.String("file", path), zap.Error(err))
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) SaveRuntimeStatus(status RuntimeStatus) error {
	if status.UpdatedAt.IsZero() {
		status.UpdatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSONAtomic(s.runtimeStatusPath(), status)
}

func (s *Store) LoadRuntimeStatus() (RuntimeStatus, bool, error) {
	data, err := os.ReadFile(s.runtimeStatusPath())
	if err != nil {
		if os.IsNotExist(err) {
			return RuntimeStatus{}, false, nil
		}
		return RuntimeStatus{}, false, err
	}
	var status RuntimeStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return RuntimeStatus{}, false, err
	}
	return status, true, nil
}

func (s *Store) runtimeStatusPath() string {
	return filepath.Join(s.root, "runtime_status.json")
}

func (s *Store) writeJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	s.fsyncDirBestEffort(dir, path)
	return nil
}

func (s *Store) fsyncDirBestEffort(dir, path string) {
	// Best-effort directory fsync to improve rename durability across crashes.
	d, err := os.Open(dir)
	if err != nil {
		s.logger.Warn("dir fsync skipped", zap.String("dir", dir), zap.String("target", path), zap.Error(err))
		return
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		s.logger.Warn("dir fsync failed", zap.String("dir", dir), zap.String("target", path), zap.Error(err))
	}
}
