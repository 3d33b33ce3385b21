package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"civsandbox/internal/sim"
)

const compressedSuffix = ".zst"

type WriteOptions struct {
	// Compress wraps the artifact in zstd and appends .zst to its name.
	Compress bool
	Now      func() time.Time
}

// FileName builds simulation_<unix nanos>_<8 hex>.<format>. The random
// suffix keeps names distinct within the same clock tick.
func FileName(format Format, t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("simulation_%d_%s.%s", t.UnixNano(), suffix, format)
}

// WriteFile renders r and writes it into dir through a temporary file, so
// readers never observe a partial artifact. It returns the final path.
func WriteFile(dir string, format Format, r *sim.Result, opts WriteOptions) (string, error) {
	data, err := Render(format, r)
	if err != nil {
		return "", err
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	name := FileName(format, now())
	if opts.Compress {
		name += compressedSuffix
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".simulation-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeArtifact(tmp, data, opts.Compress); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", name, err)
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("renaming %s: %w", name, err)
	}
	return path, nil
}

// ReadFile returns the rendered artifact at path, decompressing .zst files.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !strings.HasSuffix(path, compressedSuffix) {
		return io.ReadAll(f)
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return io.ReadAll(dec)
}

func writeArtifact(w io.Writer, data []byte, compress bool) error {
	if !compress {
		_, err := w.Write(data)
		return err
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(enc)
	if _, err := bw.Write(data); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}
