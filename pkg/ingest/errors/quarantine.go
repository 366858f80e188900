package errors

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
)

// Quarantine stores rejected rows for later inspection. Implementations are
// shared between month workers and must be safe for concurrent use.
type Quarantine interface {
	Add(err *RowError)
	// Count is the number of rows offered, including any a bounded
	// quarantine dropped.
	Count() int
	Flush() error
	Close() error
}

// MemoryQuarantine keeps up to limit rejected rows in memory (0 = all).
type MemoryQuarantine struct {
	mu      sync.Mutex
	rows    []*RowError
	limit   int
	offered int
}

func NewMemoryQuarantine(limit int) *MemoryQuarantine {
	return &MemoryQuarantine{limit: limit}
}

func (q *MemoryQuarantine) Add(err *RowError) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.offered++
	if q.limit > 0 && len(q.rows) >= q.limit {
		return
	}
	q.rows = append(q.rows, err)
}

// Errors returns a copy of the kept rows in arrival order.
func (q *MemoryQuarantine) Errors() []*RowError {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*RowError{}, q.rows...)
}

func (q *MemoryQuarantine) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.offered
}

func (q *MemoryQuarantine) Flush() error { return nil }

func (q *MemoryQuarantine) Close() error { return nil }

// FileQuarantine writes one JSON line per rejected row. After the first
// write failure further rows are only counted; Flush reports the failure.
type FileQuarantine struct {
	mu    sync.Mutex
	file  *os.File
	w     *bufio.Writer
	enc   *json.Encoder
	count  int
	err    error
	closed bool
}

// NewFileQuarantine creates (or truncates) a JSONL quarantine file.
func NewFileQuarantine(path string) (*FileQuarantine, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(file)
	return &FileQuarantine{file: file, w: w, enc: json.NewEncoder(w)}, nil
}

func (q *FileQuarantine) Add(err *RowError) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.count++
	if q.err != nil || q.closed {
		return
	}
	q.err = q.enc.Encode(err)
}

func (q *FileQuarantine) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Flush writes buffered lines and reports the first write error, if any.
func (q *FileQuarantine) Flush() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.flush()
}

func (q *FileQuarantine) flush() error {
	if q.closed {
		return nil
	}
	if q.err != nil {
		return q.err
	}
	if err := q.w.Flush(); err != nil {
		return err
	}
	return q.file.Sync()
}

// Close flushes and closes the file. Rows added afterwards are counted but
// not written. Closing twice is a no-op.
func (q *FileQuarantine) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	flushErr := q.flush()
	q.closed = true
	if err := q.file.Close(); err != nil {
		return err
	}
	return flushErr
}
