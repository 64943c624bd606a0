package tlsio

import (
	"github.com/brickingsoft/tlsio/pkg/certfp"
)

// FingerprintFile loads a single PEM certificate from disk and fingerprints
// it, so peers can be matched against configuration without a live session.
func FingerprintFile(path string, method certfp.Method) ([]byte, error) {
	return certfp.File(path, method)
}
