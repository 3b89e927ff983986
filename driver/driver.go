// Package driver exposes an Engine as a database/sql driver, adapted
// from the teacher's driver/driver.go — here there is no catalog
// registry keyed by DSN since corvid has exactly one catalog per data
// directory; the DSN is simply that directory's path (spec.md §4.18).
package driver

import (
	stdsql "database/sql"
	"database/sql/driver"

	"github.com/corvidsql/corvid/config"
	"github.com/corvidsql/corvid/engine"
)

func init() {
	stdsql.Register("corvid", &Driver{})
}

// Driver implements database/sql/driver.Driver over a corvid Engine.
type Driver struct{}

// Open returns a new connection backed by an Engine rooted at dataDir.
func (d *Driver) Open(dataDir string) (driver.Conn, error) {
	cfg := config.Default()
	cfg.DataDir = dataDir
	e, err := engine.Open(cfg)
	if err != nil {
		return nil, err
	}
	return &Conn{engine: e}, nil
}
