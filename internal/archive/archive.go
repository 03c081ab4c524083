// Package archive stores compressed copies of ingested transcripts so the
// raw JSONL can be re-read after the assistant rotates its own logs.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Store compresses the transcript at srcPath into dir/{session-id}.jsonl.zst
// and returns the archive path. An existing archive for the same session is
// overwritten.
func Store(srcPath, dir string) (string, error) {
	id := sessionID(srcPath)
	if id == "" {
		return "", fmt.Errorf("not a transcript path: %s", srcPath)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("open transcript: %w", err)
	}
	defer src.Close()

	destPath := Path(id, dir)
	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	defer dest.Close()

	enc, err := zstd.NewWriter(dest)
	if err != nil {
		return "", fmt.Errorf("zstd writer: %w", err)
	}
	if _, err := io.Copy(enc, src); err != nil {
		enc.Close()
		return "", fmt.Errorf("compress: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("flush archive: %w", err)
	}

	return destPath, nil
}

// Restore decompresses an archive to a temp file and returns its path with a
// cleanup function the caller must defer.
func Restore(archivePath string) (string, func(), error) {
	src, err := os.Open(archivePath)
	if err != nil {
		return "", nil, fmt.Errorf("open archive: %w", err)
	}
	defer src.Close()

	dec, err := zstd.NewReader(src)
	if err != nil {
		return "", nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	tmp, err := os.CreateTemp("", "si-restore-*.jsonl")
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, dec); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("decompress: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("close temp: %w", err)
	}

	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}

// Exists reports whether an archive is already present for the session ID.
func Exists(sessionID, dir string) bool {
	_, err := os.Stat(Path(sessionID, dir))
	return err == nil
}

// Path returns the deterministic archive location for a session ID.
func Path(sessionID, dir string) string {
	return filepath.Join(dir, sessionID+".jsonl.zst")
}

func sessionID(path string) string {
	base := filepath.Base(path)
	switch {
	case strings.HasSuffix(base, ".jsonl"):
		return strings.TrimSuffix(base, ".jsonl")
	case strings.HasSuffix(base, ".jsonl.zst"):
		return strings.TrimSuffix(base, ".jsonl.zst")
	}
	return ""
}
