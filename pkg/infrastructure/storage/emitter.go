package storage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
)

// DefaultChunkSize is the number of entries per output file
const DefaultChunkSize = 300

// ChunkWriter implements repository.BucketWriter.
// Chunk 0 of a bucket is written under its bare name, chunk k under name+(k+1).
type ChunkWriter struct {
	root      string
	chunkSize int
}

// NewChunkWriter creates a writer below root
func NewChunkWriter(root string, chunkSize int) *ChunkWriter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &ChunkWriter{root: root, chunkSize: chunkSize}
}

// WriteBucket writes every chunk of the bucket and removes continuation
// files left over from a larger earlier run.
// An empty bucket still produces one zero-byte file.
func (w *ChunkWriter) WriteBucket(bucket entity.Bucket) (int, error) {
	base, err := w.path(bucket.Name)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		return 0, fmt.Errorf("create bucket directory: %w", err)
	}

	chunks := Chunk(bucket.Entries, w.chunkSize)
	if len(chunks) == 0 {
		chunks = [][]string{nil}
	}

	for k, chunk := range chunks {
		var data []byte
		if len(chunk) > 0 {
			data = []byte(base64.StdEncoding.EncodeToString([]byte(strings.Join(chunk, "\n"))))
		}
		if err := os.WriteFile(ChunkName(base, k), data, 0o644); err != nil {
			return k, fmt.Errorf("write chunk %d of %s: %w", k, bucket.Name, err)
		}
	}

	for k := len(chunks); ; k++ {
		err := os.Remove(ChunkName(base, k))
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return len(chunks), fmt.Errorf("remove stale chunk %d of %s: %w", k, bucket.Name, err)
		}
	}
	return len(chunks), nil
}

// WriteFile writes a plain file below the output root
func (w *ChunkWriter) WriteFile(name string, data []byte) error {
	path, err := w.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (w *ChunkWriter) path(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if name == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid bucket name %q", name)
	}
	return filepath.Join(w.root, clean), nil
}

// ChunkName returns the file name of chunk k
func ChunkName(base string, k int) string {
	if k == 0 {
		return base
	}
	return base + strconv.Itoa(k+1)
}

// Chunk splits entries into consecutive groups of at most size
func Chunk(entries []string, size int) [][]string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var chunks [][]string
	for start := 0; start < len(entries); start += size {
		end := min(start+size, len(entries))
		chunks = append(chunks, entries[start:end])
	}
	return chunks
}
