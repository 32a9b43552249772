package storage

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Journal is an append-only record of orderbook events, one line each.
type Journal interface {
	Append(event string, h common.Hash) error
}

type NopJournal struct{}

func NewNopJournal() *NopJournal                       { return &NopJournal{} }
func (j *NopJournal) Append(string, common.Hash) error { return nil }

type FileJournal struct {
	mu  sync.Mutex
	f   *os.File
	now func() time.Time
}

func NewFileJournal(path string) (*FileJournal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileJournal{f: f, now: time.Now}, nil
}

// Append writes "<unix-seconds> <event> <hash>".
func (j *FileJournal) Append(event string, h common.Hash) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := fmt.Fprintf(j.f, "%d %s %s\n", j.now().Unix(), event, h.Hex()); err != nil {
		return fmt.Errorf("journal append: %w", err)
	}
	return nil
}

func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.f.Close()
}

var _ Journal = (*NopJournal)(nil)
var _ Journal = (*FileJournal)(nil)
