package storage

import (
	"fmt"

	"mc-terrain/internal/grid"
	"mc-terrain/internal/world"
)

// Store saves and loads chunk node data. Load reports found=false when
// nothing is stored for pos. Implementations are safe for concurrent use.
type Store interface {
	Save(c *world.Chunk) error
	Load(pos world.ChunkCoord, nodes *grid.Grid[world.Node]) (found bool, err error)
	Close() error
}

// Drivers accepted by Open.
const (
	DriverNone   = "none"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Open creates the store named by driver. path is a directory for the file
// driver and a database file for sqlite. DriverNone returns a nil Store.
func Open(driver, path string, compress bool) (Store, error) {
	switch driver {
	case DriverNone, "":
		return nil, nil
	case DriverFile:
		s, err := NewFileStore(path, compress)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverSQLite:
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("storage: unknown driver %q", driver)
}
