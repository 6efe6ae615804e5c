package parser

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// FileHash computes the SHA-256 digest of a file's full byte content.
// The file is streamed through the hash so memory use stays bounded
// regardless of file size.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
