// Package journal appends run lifecycle events to hourly zstd-compressed
// JSONL files.
package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"civsandbox/internal/sandbox"
	"civsandbox/internal/sim"
)

type Writer struct {
	baseDir string
	prefix  string
	clock   func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewWriter(baseDir, prefix string) *Writer {
	return &Writer{
		baseDir: baseDir,
		prefix:  prefix,
		clock:   time.Now,
	}
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Write appends v as one JSON line. Each line is flushed through the
// encoder so a crash loses at most the current zstd block.
func (w *Writer) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.clock().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

func (w *Writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *Writer) closeLocked() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err
}

func (w *Writer) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// Entry is one journal line.
type Entry struct {
	Type       sandbox.EventType `json:"type"`
	Time       time.Time         `json:"time"`
	RunID      string            `json:"run_id,omitempty"`
	Status     string            `json:"status,omitempty"`
	Risks      []string          `json:"risks,omitempty"`
	Points     int               `json:"points,omitempty"`
	Parameters *sim.Parameters   `json:"parameters,omitempty"`
}

// RunJournal records every orchestrator event.
type RunJournal struct{ w *Writer }

func NewRunJournal(dir string) *RunJournal {
	return &RunJournal{w: NewWriter(dir, "runs")}
}

func (j *RunJournal) Observe(ctx context.Context, ev sandbox.Event) error {
	entry := Entry{Type: ev.Type, Time: ev.Time}
	if ev.Parameters != nil {
		entry.Parameters = ev.Parameters
	}
	if rec := ev.Record; rec != nil {
		entry.RunID = rec.ID
		entry.Status = string(rec.Result.FinalStatus)
		entry.Risks = rec.Result.RisksDetected
		entry.Points = len(rec.Result.Timeline)
		entry.Parameters = &rec.Parameters
	}
	return j.w.Write(entry)
}

func (j *RunJournal) Close() error { return j.w.Close() }

var _ sandbox.Observer = (*RunJournal)(nil)
