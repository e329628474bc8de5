// ABOUTME: Backend selection for the durable store
// ABOUTME: Maps a configured driver name to a Store implementation

package store

import "fmt"

// DriverBolt selects the bbolt-backed store.
const DriverBolt = "bolt"

// Open creates the Store implementation named by driver at path.
// Supported drivers are "bolt", "sqlite" and "sqlite3".
func Open(driver, path string) (Store, error) {
	switch driver {
	case DriverBolt, "":
		return NewBoltStore(path)
	case DriverSQLite, DriverSQLite3:
		return NewSQLiteStoreWithDriver(driver, path)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}
