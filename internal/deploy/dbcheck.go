package deploy

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// CheckDatabase opens the database file read-only and runs a quick
// integrity check. Callers treat a failure as advisory: the file is
// already restored and the daemon's own tooling owns its schema.
func CheckDatabase(path string) error {
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer conn.Close()

	var result string
	if err := conn.QueryRow("PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("failed to run integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database integrity check reported: %s", result)
	}
	return nil
}
