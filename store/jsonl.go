package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	errorskg "github.com/sweetpotato0/ai-autopilot/errors"
	"github.com/sweetpotato0/ai-autopilot/pkg/logging"
)

const maxLineSize = 16 << 20

// JSONLLog stores one JSON object per line in a text file. Writes are
// serialised with a mutex inside the process and an advisory file lock
// across processes. Rewrite holds the lock exclusively until the new file
// is in place, and writers that were waiting on the replaced file reopen
// the path before writing.
type JSONLLog[T any] struct {
	path    string
	maxLine int
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewJSONLLog creates a log backed by path. The file and its parent
// directory are created on first append.
func NewJSONLLog[T any](path string) *JSONLLog[T] {
	return &JSONLLog[T]{
		path:    path,
		maxLine: maxLineSize,
		logger:  logging.WithComponent("store").With("path", path),
	}
}

// Path returns the backing file path.
func (l *JSONLLog[T]) Path() string {
	return l.path
}

// openLocked opens path and locks it. When the path was replaced while
// waiting for the lock, the stale handle is dropped and the open retried.
func openLocked(path string, flag int, exclusive bool) (*os.File, error) {
	for {
		f, err := os.OpenFile(path, flag, 0o644)
		if err != nil {
			return nil, err
		}
		if err := lockFile(f, exclusive); err != nil {
			f.Close()
			return nil, fmt.Errorf("lock log: %w", err)
		}
		held, herr := f.Stat()
		current, cerr := os.Stat(path)
		if herr == nil && cerr == nil && os.SameFile(held, current) {
			return f, nil
		}
		unlockFile(f)
		f.Close()
		if cerr != nil && !errors.Is(cerr, fs.ErrNotExist) {
			return nil, cerr
		}
	}
}

// Append writes rec as a single line.
func (l *JSONLLog[T]) Append(ctx context.Context, rec T) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errorskg.ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := openLocked(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, true)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()
	defer unlockFile(f)

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// ReadAll parses the file line by line. A missing file is an empty log.
// Lines that do not parse or exceed the size limit are skipped with a
// warning.
func (l *JSONLLog[T]) ReadAll(ctx context.Context) ([]T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, errorskg.ErrStoreClosed
	}

	f, err := openLocked(l.path, os.O_RDONLY, false)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()
	defer unlockFile(f)

	var (
		out      []T
		pending  []byte
		oversize bool
		line     int
	)
	reader := bufio.NewReaderSize(f, 64*1024)
	for {
		chunk, rerr := reader.ReadSlice('\n')
		if rerr != nil && !errors.Is(rerr, bufio.ErrBufferFull) && !errors.Is(rerr, io.EOF) {
			return out, fmt.Errorf("read log: %w", rerr)
		}
		if !oversize {
			if len(pending)+len(chunk) > l.maxLine {
				oversize = true
				pending = pending[:0]
			} else {
				pending = append(pending, chunk...)
			}
		}
		if errors.Is(rerr, bufio.ErrBufferFull) {
			continue
		}
		atEOF := errors.Is(rerr, io.EOF)
		if atEOF && len(chunk) == 0 && len(pending) == 0 && !oversize {
			break
		}

		line++
		if line%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		switch raw := bytes.TrimSpace(pending); {
		case oversize:
			l.logger.Warn("skipping oversized record", "line", line, "limit", l.maxLine)
		case len(raw) == 0:
		default:
			var rec T
			if err := json.Unmarshal(raw, &rec); err != nil {
				l.logger.Warn("skipping unparsable record", "line", line, "error", err)
				break
			}
			out = append(out, rec)
		}
		pending = pending[:0]
		oversize = false
		if atEOF {
			break
		}
	}
	return out, nil
}

// Rewrite atomically replaces the file content with recs.
func (l *JSONLLog[T]) Rewrite(ctx context.Context, recs []T) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errorskg.ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	live, err := openLocked(l.path, os.O_CREATE|os.O_RDWR, true)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer live.Close()
	defer unlockFile(live)

	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp log: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp log: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("replace log: %w", err)
	}
	return nil
}

// Close marks the log closed. Further calls fail with ErrStoreClosed.
func (l *JSONLLog[T]) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}
