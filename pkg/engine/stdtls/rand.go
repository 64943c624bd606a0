package stdtls

import (
	"crypto/rand"
	"io"
)

// Rand fills p from the engine's cryptographic randomness source.
func Rand(p []byte) error {
	_, err := io.ReadFull(rand.Reader, p)
	return err
}
