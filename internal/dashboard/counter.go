package dashboard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Counter hands out the next visitor number.
type Counter interface {
	Increment(ctx context.Context) (int64, error)
}

// StoreCounter keeps the count in the single visitor_counter row.
type StoreCounter struct {
	db *sqlx.DB
}

func NewStoreCounter(db *sqlx.DB) *StoreCounter {
	return &StoreCounter{db: db}
}

func (c *StoreCounter) Increment(ctx context.Context) (int64, error) {
	var n int64
	const q = `UPDATE visitor_counter SET count = count + 1 WHERE id = 1 RETURNING count`
	if err := c.db.GetContext(ctx, &n, q); err != nil {
		return 0, fmt.Errorf("increment visitor counter: %w", err)
	}
	return n, nil
}

// FileCounter keeps the count as a decimal integer in a text file. Updates
// are serialised in-process and each write replaces the file atomically.
type FileCounter struct {
	mu   sync.Mutex
	path string
}

func NewFileCounter(path string) *FileCounter {
	return &FileCounter{path: path}
}

func (c *FileCounter) Increment(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n, err := c.read()
	if err != nil {
		return 0, err
	}
	n++
	if err := c.write(n); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *FileCounter) read() (int64, error) {
	b, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read visitor counter: %w", err)
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse visitor counter %q: %w", s, err)
	}
	return n, nil
}

func (c *FileCounter) write(n int64) error {
	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".visitors-*")
	if err != nil {
		return fmt.Errorf("write visitor counter: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(strconv.FormatInt(n, 10)); err != nil {
		tmp.Close()
		return fmt.Errorf("write visitor counter: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync visitor counter: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close visitor counter: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("replace visitor counter: %w", err)
	}
	return nil
}
