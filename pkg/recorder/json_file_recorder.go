package recorder

import (
	"bracketflow/internal/model"
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
)

// JSONFileRecorder 每行一条 JSON 的流水文件，实现 execution.Journal
type JSONFileRecorder struct {
	Path string

	mu   sync.Mutex
	file *os.File
}

func NewJSONFileRecorder(path string) (*JSONFileRecorder, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &JSONFileRecorder{Path: path, file: file}, nil
}

func (r *JSONFileRecorder) Record(result any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err = r.file.Write(data)
	return err
}

func (r *JSONFileRecorder) RecordSubmission(ctx context.Context, executionID string, order model.SubmittedOrder) error {
	return r.Record(model.NewSubmissionEntry(executionID, order))
}

func (r *JSONFileRecorder) RecordOutcome(ctx context.Context, res model.MonitorResult) error {
	return r.Record(model.NewOutcomeEntry(res))
}

func (r *JSONFileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}
