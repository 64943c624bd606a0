package tlsio

import (
	"github.com/brickingsoft/tlsio/pkg/engine/stdtls"
)

// Random fills b from the engine's cryptographic randomness source, for
// callers that need nonce material independent of any session.
func Random(b []byte) error {
	return stdtls.Rand(b)
}
