package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const (
	jsonExt = ".json"
	zstdExt = ".json.zst"
)

// FileStore keeps one file per slot in a directory, named after the source.
type FileStore struct {
	dir      string
	compress bool

	encoder     *zstd.Encoder
	decoderPool sync.Pool
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithCompression stores slots as zstd-compressed <source>.json.zst files.
func WithCompression(enabled bool) FileOption {
	return func(s *FileStore) { s.compress = enabled }
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string, opts ...FileOption) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	s := &FileStore{
		dir:     dir,
		encoder: enc,
		decoderPool: sync.Pool{
			New: func() any {
				d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
				if err != nil {
					panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
				}
				return d
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the file a slot for source is written to.
func (s *FileStore) Path(source string) string {
	if s.compress {
		return filepath.Join(s.dir, source+zstdExt)
	}
	return filepath.Join(s.dir, source+jsonExt)
}

func (s *FileStore) Get(ctx context.Context, source string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	if err := validateSource(source); err != nil {
		return Entry{}, err
	}
	// Prefer the configured encoding; fall back to the other one so toggling
	// compression does not discard existing slots.
	paths := []string{filepath.Join(s.dir, source+jsonExt), filepath.Join(s.dir, source+zstdExt)}
	if s.compress {
		slices.Reverse(paths)
	}
	for _, p := range paths {
		e, err := s.read(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return e, err
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, source)
}

func (s *FileStore) read(path string) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	if strings.HasSuffix(path, zstdExt) {
		data, err = s.decompress(data)
		if err != nil {
			return Entry{}, fmt.Errorf("decompress %s: %w", filepath.Base(path), err)
		}
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return e, nil
}

func (s *FileStore) decompress(data []byte) ([]byte, error) {
	d, _ := s.decoderPool.Get().(*zstd.Decoder)
	defer s.decoderPool.Put(d)
	return d.DecodeAll(data, nil)
}

// Put writes the slot to a temp file in the same directory and renames it
// over the previous one.
func (s *FileStore) Put(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateSource(e.Source); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode slot %s: %w", e.Source, err)
	}
	if s.compress {
		data = s.encoder.EncodeAll(data, nil)
	}

	tmp, err := os.CreateTemp(s.dir, "."+e.Source+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp slot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp slot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp slot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp slot: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(e.Source)); err != nil {
		return fmt.Errorf("replace slot %s: %w", e.Source, err)
	}
	// A slot written before compression was toggled would shadow this one
	// once the setting flips back.
	if err := os.Remove(s.otherPath(e.Source)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove superseded slot %s: %w", e.Source, err)
	}
	return nil
}

func (s *FileStore) otherPath(source string) string {
	if s.compress {
		return filepath.Join(s.dir, source+jsonExt)
	}
	return filepath.Join(s.dir, source+zstdExt)
}

func (s *FileStore) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	items, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read cache dir: %w", err)
	}
	seen := make(map[string]bool)
	var out []Entry
	for _, it := range items {
		name := it.Name()
		if it.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		var source string
		switch {
		case strings.HasSuffix(name, zstdExt):
			source = strings.TrimSuffix(name, zstdExt)
		case strings.HasSuffix(name, jsonExt):
			source = strings.TrimSuffix(name, jsonExt)
		default:
			continue
		}
		if seen[source] {
			continue
		}
		seen[source] = true
		e, err := s.Get(ctx, source)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Source, b.Source) })
	return out, nil
}
