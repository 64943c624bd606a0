package credentials

import (
	"encoding/pem"
	"math/big"

	"github.com/brickingsoft/errors"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

var (
	ErrParseDH = errors.Define("credentials: parse dh parameters failed")
)

// minDHBits rejects parameter files whose prime is too small to be usable.
const minDHBits = 512

// DHParams holds PKCS#3 Diffie-Hellman group parameters. The engine consumes
// them when it supports finite-field key exchange; engines without it keep
// working, the parameters are simply unused.
type DHParams struct {
	P *big.Int
	G *big.Int
	// PrivateValueLength is the optional recommended private value bit
	// length, 0 when absent.
	PrivateValueLength int
}

// BitLen returns the size of the prime modulus in bits.
func (dh *DHParams) BitLen() int {
	return dh.P.BitLen()
}

// ParseDHParams parses a PEM "DH PARAMETERS" block holding the PKCS#3
// DHParameter sequence.
func ParseDHParams(dhPEM []byte) (*DHParams, error) {
	block, _ := pem.Decode(dhPEM)
	if block == nil || block.Type != "DH PARAMETERS" {
		return nil, errors.New("credentials: no dh parameters pem block", errors.WithWrap(ErrParseDH))
	}

	input := cryptobyte.String(block.Bytes)
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, asn1.SEQUENCE) || !input.Empty() {
		return nil, errors.New("credentials: malformed dh parameters", errors.WithWrap(ErrParseDH))
	}
	p := new(big.Int)
	g := new(big.Int)
	if !seq.ReadASN1Integer(p) || !seq.ReadASN1Integer(g) {
		return nil, errors.New("credentials: malformed dh parameters", errors.WithWrap(ErrParseDH))
	}
	privLen := 0
	if !seq.Empty() {
		if !seq.ReadASN1Integer(&privLen) || !seq.Empty() {
			return nil, errors.New("credentials: malformed dh parameters", errors.WithWrap(ErrParseDH))
		}
	}

	if p.Sign() <= 0 || p.BitLen() < minDHBits {
		return nil, errors.New("credentials: dh prime is too small", errors.WithWrap(ErrParseDH))
	}
	if g.Sign() <= 0 || g.Cmp(big.NewInt(1)) <= 0 || g.Cmp(p) >= 0 {
		return nil, errors.New("credentials: dh generator is out of range", errors.WithWrap(ErrParseDH))
	}

	return &DHParams{P: p, G: g, PrivateValueLength: privLen}, nil
}
