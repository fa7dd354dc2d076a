package storage

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mc-terrain/internal/grid"
	"mc-terrain/internal/world"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps all chunks in one SQLite database, one zstd-compressed
// row per chunk.
type SQLiteStore struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, enc: enc, dec: dec}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			size_x INTEGER NOT NULL,
			size_y INTEGER NOT NULL,
			size_z INTEGER NOT NULL,
			data BLOB NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (x, y, z)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Save upserts the chunk's row.
func (s *SQLiteStore) Save(c *world.Chunk) error {
	nodes := c.Nodes()
	var raw bytes.Buffer
	raw.Grow(EncodedLen(nodes))
	if err := Encode(&raw, nodes); err != nil {
		return err
	}
	blob := s.enc.EncodeAll(raw.Bytes(), nil)
	sx, sy, sz := nodes.Size()
	_, err := s.db.Exec(`INSERT INTO chunks (x, y, z, size_x, size_y, size_z, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (x, y, z) DO UPDATE SET
			size_x = excluded.size_x,
			size_y = excluded.size_y,
			size_z = excluded.size_z,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		c.Coord.X, c.Coord.Y, c.Coord.Z, sx, sy, sz, blob, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save %v: %w", c.Coord, err)
	}
	return nil
}

// Load reads the row for pos into nodes.
func (s *SQLiteStore) Load(pos world.ChunkCoord, nodes *grid.Grid[world.Node]) (bool, error) {
	var sx, sy, sz int
	var blob []byte
	err := s.db.QueryRow(`SELECT size_x, size_y, size_z, data FROM chunks WHERE x = ? AND y = ? AND z = ?`,
		pos.X, pos.Y, pos.Z).Scan(&sx, &sy, &sz, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	wx, wy, wz := nodes.Size()
	if sx != wx || sy != wy || sz != wz {
		return false, fmt.Errorf("load %v: %w: stored %dx%dx%d, want %dx%dx%d", pos, ErrSizeMismatch, sx, sy, sz, wx, wy, wz)
	}
	raw, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return false, fmt.Errorf("load %v: %w", pos, err)
	}
	if err := Decode(bytes.NewReader(raw), nodes); err != nil {
		return false, fmt.Errorf("load %v: %w", pos, err)
	}
	return true, nil
}

// Count returns the number of stored chunks.
func (s *SQLiteStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

// Close releases the database and codecs.
func (s *SQLiteStore) Close() error {
	s.dec.Close()
	encErr := s.enc.Close()
	if err := s.db.Close(); err != nil {
		return err
	}
	return encErr
}
