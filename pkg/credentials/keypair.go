package credentials

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"

	"github.com/brickingsoft/errors"
)

// parseKeyPEM finds the PRIVATE KEY block of the PEM input and parses it.
func parseKeyPEM(keyPEM []byte) (crypto.PrivateKey, error) {
	var skippedBlockTypes []string
	rest := keyPEM
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			if len(skippedBlockTypes) == 1 && skippedBlockTypes[0] == "CERTIFICATE" {
				return nil, errors.New("credentials: found a certificate rather than a key in the key input", errors.WithWrap(ErrParseKey))
			}
			return nil, errors.New("credentials: no private key pem block in key input", errors.WithWrap(ErrParseKey))
		}
		if block.Type == "PRIVATE KEY" || strings.HasSuffix(block.Type, " PRIVATE KEY") {
			return parsePrivateKey(block.Bytes)
		}
		skippedBlockTypes = append(skippedBlockTypes, block.Type)
	}
}

// Attempt to parse the given private key DER block. OpenSSL 0.9.8 generates
// PKCS #1 private keys by default, while OpenSSL 1.0.0 generates PKCS #8 keys.
// OpenSSL ecparam generates SEC1 EC private keys for ECDSA. We try all three.
func parsePrivateKey(der []byte) (crypto.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		switch key := key.(type) {
		case *rsa.PrivateKey, *ecdsa.PrivateKey, ed25519.PrivateKey:
			return key, nil
		default:
			return nil, errors.New("credentials: unknown private key type in pkcs#8 wrapping", errors.WithWrap(ErrParseKey))
		}
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, errors.New("credentials: parse private key failed", errors.WithWrap(ErrParseKey))
}

// matchKeyPair checks that the leaf certificate's public key matches the
// parsed private key.
func matchKeyPair(leaf *x509.Certificate, key crypto.PrivateKey) error {
	switch pub := leaf.PublicKey.(type) {
	case *rsa.PublicKey:
		priv, ok := key.(*rsa.PrivateKey)
		if !ok {
			return errors.New("credentials: private key type does not match public key type", errors.WithWrap(ErrKeyMismatch))
		}
		if pub.N.Cmp(priv.N) != 0 {
			return errors.New("credentials: private key does not match public key", errors.WithWrap(ErrKeyMismatch))
		}
	case *ecdsa.PublicKey:
		priv, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return errors.New("credentials: private key type does not match public key type", errors.WithWrap(ErrKeyMismatch))
		}
		if pub.X.Cmp(priv.X) != 0 || pub.Y.Cmp(priv.Y) != 0 {
			return errors.New("credentials: private key does not match public key", errors.WithWrap(ErrKeyMismatch))
		}
	case ed25519.PublicKey:
		priv, ok := key.(ed25519.PrivateKey)
		if !ok {
			return errors.New("credentials: private key type does not match public key type", errors.WithWrap(ErrKeyMismatch))
		}
		if !bytes.Equal(priv.Public().(ed25519.PublicKey), pub) {
			return errors.New("credentials: private key does not match public key", errors.WithWrap(ErrKeyMismatch))
		}
	default:
		return errors.New("credentials: unknown public key algorithm", errors.WithWrap(ErrKeyMismatch))
	}
	return nil
}
