// Package certfp computes certificate fingerprints for out-of-band peer
// authentication. A fingerprint is a digest of either the whole DER
// certificate or of its re-exported subject public key info, so peers can be
// matched without any trust-chain validation.
package certfp

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"encoding/pem"
	"io"
	"os"

	"github.com/brickingsoft/errors"
)

type Method int

const (
	CertSHA1 Method = iota
	CertSHA256
	CertSHA512
	SPKISHA256
	SPKISHA512
)

const (
	// maxFileSize bounds certificate file loads against misconfigured inputs.
	maxFileSize = 128 * 1024
)

var (
	ErrLoadFile = errors.Define("certfp: load certificate file failed")
)

// Size returns the fixed digest length of the method, 0 for unknown methods.
func (m Method) Size() int {
	switch m {
	case CertSHA1:
		return sha1.Size
	case CertSHA256, SPKISHA256:
		return sha256.Size
	case CertSHA512, SPKISHA512:
		return sha512.Size
	default:
		return 0
	}
}

func (m Method) String() string {
	switch m {
	case CertSHA1:
		return "CERT-SHA1"
	case CertSHA256:
		return "CERT-SHA256"
	case CertSHA512:
		return "CERT-SHA512"
	case SPKISHA256:
		return "SPKI-SHA256"
	case SPKISHA512:
		return "SPKI-SHA512"
	default:
		return "UNKNOWN"
	}
}

// Sum computes the fingerprint of a DER encoded certificate.
// An empty result means the fingerprint is unavailable, never a valid
// zero-length fingerprint.
func Sum(der []byte, method Method) []byte {
	switch method {
	case CertSHA1:
		digest := sha1.Sum(der)
		return digest[:]
	case CertSHA256:
		digest := sha256.Sum256(der)
		return digest[:]
	case CertSHA512:
		digest := sha512.Sum512(der)
		return digest[:]
	case SPKISHA256, SPKISHA512:
		cert, parseErr := x509.ParseCertificate(der)
		if parseErr != nil {
			return nil
		}
		return SumCertificate(cert, method)
	default:
		return nil
	}
}

// SumCertificate computes the fingerprint of a parsed certificate.
// For the SPKI methods the public key is exported back to DER and the
// export is digested instead of the certificate body.
func SumCertificate(cert *x509.Certificate, method Method) []byte {
	switch method {
	case CertSHA1, CertSHA256, CertSHA512:
		return Sum(cert.Raw, method)
	case SPKISHA256:
		spki, exportErr := x509.MarshalPKIXPublicKey(cert.PublicKey)
		if exportErr != nil {
			return nil
		}
		digest := sha256.Sum256(spki)
		return digest[:]
	case SPKISHA512:
		spki, exportErr := x509.MarshalPKIXPublicKey(cert.PublicKey)
		if exportErr != nil {
			return nil
		}
		digest := sha512.Sum512(spki)
		return digest[:]
	default:
		return nil
	}
}

// File loads a single PEM certificate from disk and fingerprints it, for
// offline computation without an active session.
func File(path string, method Method) ([]byte, error) {
	f, openErr := os.Open(path)
	if openErr != nil {
		return nil, errors.New("certfp: load certificate file failed", errors.WithWrap(openErr))
	}
	defer func() {
		_ = f.Close()
	}()
	data, readErr := io.ReadAll(io.LimitReader(f, maxFileSize))
	if readErr != nil {
		return nil, errors.New("certfp: load certificate file failed", errors.WithWrap(readErr))
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errors.New("certfp: no certificate pem block", errors.WithWrap(ErrLoadFile))
	}
	return Sum(block.Bytes, method), nil
}
