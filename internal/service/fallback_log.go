package service

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// FallbackEntry is one undelivered code, persisted for manual
// operator retrieval. This is a deliberate degraded-mode record, not
// silent data loss.
type FallbackEntry struct {
	Time          time.Time `json:"time"`
	TransactionID string    `json:"transactionId"`
	OrderID       string    `json:"orderId"`
	Address       string    `json:"address"`
	Code          string    `json:"code"`
}

// FallbackLog appends JSON lines to a durable file
type FallbackLog struct {
	mu   sync.Mutex
	path string
}

func NewFallbackLog(path string) *FallbackLog {
	return &FallbackLog{path: path}
}

func (l *FallbackLog) Append(entry FallbackEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal fallback entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open fallback log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write fallback log: %w", err)
	}
	return nil
}
