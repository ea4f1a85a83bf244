package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"tickwatch/internal/model"
)

const (
	recordObservation = "observation"
	recordAlert       = "alert"
)

type journalRecord struct {
	Kind string      `json:"kind"`
	Data interface{} `json:"data"`
}

// JsonlStorage appends observations and alerts to one JSONL journal.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutObservations appends observation records as JSON lines.
func (s *JsonlStorage) PutObservations(_ context.Context, observations []model.Observation) error {
	records := make([]journalRecord, 0, len(observations))
	for i := range observations {
		records = append(records, journalRecord{Kind: recordObservation, Data: observations[i]})
	}
	return s.append(records)
}

// PutAlerts appends alert records as JSON lines.
func (s *JsonlStorage) PutAlerts(_ context.Context, alerts []model.Alert) error {
	records := make([]journalRecord, 0, len(alerts))
	for i := range alerts {
		records = append(records, journalRecord{Kind: recordAlert, Data: alerts[i]})
	}
	return s.append(records)
}

func (s *JsonlStorage) append(records []journalRecord) error {
	if len(records) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create journal dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal %s record: %w", record.Kind, err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write %s record: %w", record.Kind, err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush journal: %w", err)
	}

	return nil
}
