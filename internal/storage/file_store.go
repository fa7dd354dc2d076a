package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"mc-terrain/internal/grid"
	"mc-terrain/internal/world"

	"github.com/klauspost/compress/zstd"
)

// FileStore keeps one file per chunk in a directory, named Chunk_X_Y_Z.dat,
// or Chunk_X_Y_Z.dat.zst when compressed.
type FileStore struct {
	dir      string
	compress bool
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string, compress bool) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage: empty chunk directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, compress: compress}, nil
}

// Path returns the file used for the chunk at pos.
func (s *FileStore) Path(pos world.ChunkCoord) string {
	name := fmt.Sprintf("Chunk_%d_%d_%d.dat", pos.X, pos.Y, pos.Z)
	if s.compress {
		name += ".zst"
	}
	return filepath.Join(s.dir, name)
}

// Save writes the chunk to a temporary file and renames it into place.
func (s *FileStore) Save(c *world.Chunk) error {
	path := s.Path(c.Coord)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := s.write(tmp, c.Nodes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("save %v: %w", c.Coord, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func (s *FileStore) write(w io.Writer, nodes *grid.Grid[world.Node]) error {
	if !s.compress {
		return Encode(w, nodes)
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if err := Encode(enc, nodes); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// Load reads the chunk at pos into nodes.
func (s *FileStore) Load(pos world.ChunkCoord, nodes *grid.Grid[world.Node]) (bool, error) {
	f, err := os.Open(s.Path(pos))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	var r io.Reader = f
	if s.compress {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return false, err
		}
		defer dec.Close()
		r = dec
	} else if fi, err := f.Stat(); err == nil && fi.Size() != int64(EncodedLen(nodes)) {
		return false, fmt.Errorf("load %v: %w: %d bytes, want %d", pos, ErrSizeMismatch, fi.Size(), EncodedLen(nodes))
	}
	if err := Decode(r, nodes); err != nil {
		return false, fmt.Errorf("load %v: %w", pos, err)
	}
	return true, nil
}

// Close is a no-op; files are closed after each call.
func (s *FileStore) Close() error { return nil }
