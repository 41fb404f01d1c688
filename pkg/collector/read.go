package collector

import "os"

// readFileBounded reads path, which the caller has already confirmed is at
// or under maxSize via its directory-entry Info().
func readFileBounded(path string, maxSize int64) ([]byte, error) {
	return os.ReadFile(path)
}
