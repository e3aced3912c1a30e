// Package envfile manages the .env file seeded into the deployed
// application. Secrets written once survive upgrade runs unchanged.
package envfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
)

// FileName is the environment file inside the install directory.
const FileName = ".env"

// Read returns the current contents of the env file, or an empty map
// when none exists yet.
func Read(dir string) (map[string]string, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}
	return values, nil
}

// Merge writes values into the env file, overwriting existing keys
// and preserving everything else.
func Merge(dir string, values map[string]string) error {
	existing, err := Read(dir)
	if err != nil {
		return err
	}
	for k, v := range values {
		existing[k] = v
	}
	return write(dir, existing)
}

// SetIfAbsent writes only the keys not already present, so upgrade
// runs never rotate previously generated secrets. It returns the keys
// that were added, in sorted order.
func SetIfAbsent(dir string, values map[string]string) ([]string, error) {
	existing, err := Read(dir)
	if err != nil {
		return nil, err
	}

	var added []string
	for k, v := range values {
		if _, ok := existing[k]; ok {
			continue
		}
		existing[k] = v
		added = append(added, k)
	}
	if len(added) == 0 {
		return nil, nil
	}
	sort.Strings(added)

	if err := write(dir, existing); err != nil {
		return nil, err
	}
	return added, nil
}

// write persists the map and tightens the file mode: the env file
// carries credentials.
func write(dir string, values map[string]string) error {
	path := filepath.Join(dir, FileName)
	if err := godotenv.Write(values, path); err != nil {
		return fmt.Errorf("failed to write env file: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("failed to restrict env file mode: %w", err)
	}
	return nil
}
