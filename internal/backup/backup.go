// Package backup writes and restores compressed snapshots of the run ledger.
//
// A backup file is a single JSON header line followed by a gzip stream of the
// ledger's JSONL export. The header carries a SHA-256 checksum of the
// compressed bytes so a file can be verified without decompressing it.
package backup

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/serbanrobu/keepaway/internal/config"
	"github.com/serbanrobu/keepaway/internal/ledger"
)

// FormatVersion is the current backup header version.
const FormatVersion = 1

// MaxDecompressedSize caps the payload size accepted on restore (200MB).
const MaxDecompressedSize = 200 * 1024 * 1024

const filePrefix = "keepaway-backup-"

// Header is the plain-text first line of a backup file.
type Header struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Checksum  string    `json:"checksum"`
	RunCount  int       `json:"run_count"`
	Ledger    string    `json:"ledger,omitempty"`
}

// RestoreResult reports what a restore did.
type RestoreResult struct {
	Restored int `json:"restored"`
	Skipped  int `json:"skipped"`
}

// DefaultDir returns ~/.keepaway/backups.
func DefaultDir() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "backups"), nil
}

// GeneratePath returns a timestamped backup filename in dir.
func GeneratePath(dir string) string {
	ts := time.Now().UTC().Format("20060102-150405.000")
	return filepath.Join(dir, filePrefix+ts+".gz")
}

// Write snapshots every run in l to path.
func Write(ctx context.Context, l *ledger.Ledger, path string) (*Header, error) {
	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	n, err := l.ExportJSONL(ctx, gzw)
	if err != nil {
		return nil, fmt.Errorf("exporting runs: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}

	header := Header{
		Version:   FormatVersion,
		CreatedAt: time.Now().UTC(),
		Checksum:  checksum(compressed.Bytes()),
		RunCount:  n,
		Ledger:    filepath.Base(l.Path()),
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("marshaling header: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("creating backup file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	w.Write(headerBytes)
	w.WriteByte('\n')
	w.Write(compressed.Bytes())
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("writing backup: %w", err)
	}
	return &header, f.Sync()
}

// ReadHeader reads only the header line of a backup.
func ReadHeader(path string) (*Header, error) {
	header, _, err := open(path, false)
	return header, err
}

// Verify checks the header and payload checksum of a backup.
func Verify(path string) (*Header, error) {
	header, _, err := open(path, true)
	return header, err
}

// Read verifies a backup and decodes its runs.
func Read(path string) (*Header, []ledger.Run, error) {
	header, payload, err := open(path, true)
	if err != nil {
		return nil, nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	dec := json.NewDecoder(io.LimitReader(gzr, MaxDecompressedSize+1))
	var runs []ledger.Run
	for {
		var run ledger.Run
		err := dec.Decode(&run)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("decoding run %d: %w", len(runs)+1, err)
		}
		runs = append(runs, run)
	}
	if dec.InputOffset() > MaxDecompressedSize {
		return nil, nil, fmt.Errorf("decompressed payload exceeds maximum size of %d bytes", MaxDecompressedSize)
	}
	if len(runs) != header.RunCount {
		return nil, nil, fmt.Errorf("run count mismatch: header says %d, payload has %d", header.RunCount, len(runs))
	}
	return header, runs, nil
}

// Restore merges the runs in a backup into l. Runs whose id already exists
// are skipped.
func Restore(ctx context.Context, l *ledger.Ledger, path string) (*RestoreResult, error) {
	_, runs, err := Read(path)
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{}
	for _, run := range runs {
		existing, err := l.Get(ctx, run.ID)
		switch {
		case err == nil && existing.ID == run.ID:
			result.Skipped++
			continue
		case err != nil && !errors.Is(err, ledger.ErrNotFound) && !errors.Is(err, ledger.ErrAmbiguousID):
			return nil, fmt.Errorf("checking run %s: %w", run.ID, err)
		}
		if err := l.Record(ctx, run); err != nil {
			return nil, fmt.Errorf("restoring run %s: %w", run.ID, err)
		}
		result.Restored++
	}
	return result, nil
}

// open parses the header of path and, when verify is set, reads the payload
// and checks it against the header checksum.
func open(path string, verify bool) (*Header, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening backup: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("reading header line: %w", err)
	}

	var header Header
	if err := json.Unmarshal(bytes.TrimSpace(line), &header); err != nil {
		return nil, nil, fmt.Errorf("parsing header: %w", err)
	}
	if header.Version != FormatVersion {
		return nil, nil, fmt.Errorf("unsupported backup version: %d", header.Version)
	}
	if !verify {
		return &header, nil, nil
	}

	payload, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("reading compressed payload: %w", err)
	}
	if got := checksum(payload); got != header.Checksum {
		return nil, nil, fmt.Errorf("checksum mismatch: expected %s, got %s", header.Checksum, got)
	}
	return &header, payload, nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}
