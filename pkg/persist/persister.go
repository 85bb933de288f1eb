package persist

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// SaveFile encodes doc into path, creating parent directories. The content
// is written to a temporary file first and renamed over path.
func SaveFile(path string, codec Codec, doc any) error {
	dir := filepath.Dir(path)

	err := os.MkdirAll(dir, dirPerm)
	if err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create state file: %w", err)
	}

	defer os.Remove(tmp.Name())

	err = codec.Encode(tmp, doc)
	if err != nil {
		tmp.Close()

		return fmt.Errorf("encode state: %w", err)
	}

	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("close state file: %w", err)
	}

	err = os.Chmod(tmp.Name(), filePerm)
	if err != nil {
		return fmt.Errorf("chmod state file: %w", err)
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}

// LoadFile decodes path into doc, which must be a pointer. A missing file
// yields an error wrapping fs.ErrNotExist.
func LoadFile(path string, codec Codec, doc any) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}
	defer file.Close()

	err = codec.Decode(file, doc)
	if err != nil {
		return fmt.Errorf("decode state %s: %w", path, err)
	}

	return nil
}

// Persister handles I/O for one document type stored as dir/basename+ext.
type Persister[T any] struct {
	basename string
	codec    Codec
}

// NewPersister creates a persister with the given basename and codec.
func NewPersister[T any](basename string, codec Codec) *Persister[T] {
	return &Persister[T]{basename: basename, codec: codec}
}

// Path returns the file the document lives in under dir.
func (p *Persister[T]) Path(dir string) string {
	return filepath.Join(dir, p.basename+p.codec.Extension())
}

// Save writes doc under dir.
func (p *Persister[T]) Save(dir string, doc *T) error {
	return SaveFile(p.Path(dir), p.codec, doc)
}

// Load reads the document under dir.
func (p *Persister[T]) Load(dir string) (*T, error) {
	var doc T

	err := LoadFile(p.Path(dir), p.codec, &doc)
	if err != nil {
		return nil, err
	}

	return &doc, nil
}

// LoadOrNew reads the document under dir, returning a zero document when
// the file is missing or unreadable. The error reports why the zero
// document was used and is nil for a missing file.
func (p *Persister[T]) LoadOrNew(dir string) (*T, error) {
	doc, err := p.Load(dir)
	if err == nil {
		return doc, nil
	}

	if errors.Is(err, fs.ErrNotExist) {
		return new(T), nil
	}

	return new(T), err
}

// Remove deletes the document under dir. A missing file is not an error.
func (p *Persister[T]) Remove(dir string) error {
	err := os.Remove(p.Path(dir))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove state file: %w", err)
	}

	return nil
}
