// Package cookies materializes an in-memory cookie blob as a short-lived file
// for components that can only consume cookies from disk.
package cookies

import (
	"fmt"
	"os"
)

// Scoped writes blob to a private temp file and returns its path together
// with a cleanup func that removes it. The cleanup func is always safe to
// call, including when blob is empty and no file was written.
func Scoped(blob string) (string, func(), error) {
	if blob == "" {
		return "", func() {}, nil
	}
	f, err := os.CreateTemp("", "cookies-*.txt")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create cookie file: %w", err)
	}
	path := f.Name()
	cleanup := func() { os.Remove(path) }
	if err := f.Chmod(0o600); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to restrict cookie file: %w", err)
	}
	if _, err := f.WriteString(blob); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to write cookie file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to close cookie file: %w", err)
	}
	return path, cleanup, nil
}
