// Package credentials holds the process-wide TLS identity material: the
// certificate chain, the private key, optional Diffie-Hellman parameters and
// the cipher priority policy. A Store is populated once by Setup and is
// read-only afterward, so every session can share it without locking.
package credentials

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"io"
	"os"

	"github.com/brickingsoft/errors"
	"go.uber.org/zap"
)

const (
	// MaxChain is the fixed capacity of the certificate chain. A source
	// containing more entries fails Setup, it is never silently truncated.
	MaxChain = 6
	// maxFileSize bounds credential file loads against misconfigured inputs.
	maxFileSize = 128 * 1024
)

var (
	ErrNoCertificateFile = errors.Define("credentials: no certificate file")
	ErrLoadFile          = errors.Define("credentials: load file failed")
	ErrParseKey          = errors.Define("credentials: parse private key failed")
	ErrParseChain        = errors.Define("credentials: parse certificate chain failed")
	ErrChainCapacity     = errors.Define("credentials: certificate chain exceeds capacity")
	ErrKeyMismatch       = errors.Define("credentials: private key does not match certificate")
)

type Store struct {
	identity tls.Certificate
	chain    []*x509.Certificate
	dh       *DHParams
	policy   *Policy
}

type Options struct {
	DHFile string
	Logger *zap.Logger
}

type Option func(options *Options) (err error)

// WithDHFile sets the optional PKCS#3 DH parameters file.
func WithDHFile(path string) Option {
	return func(options *Options) (err error) {
		options.DHFile = path
		return
	}
}

// WithLogger sets the logger used for setup diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(options *Options) (err error) {
		if logger != nil {
			options.Logger = logger
		}
		return
	}
}

// Setup loads and parses the credential material. Missing or unparsable
// certificate and key files are hard failures. DH parameter failures are
// logged and setup continues without DH support. A cipher policy syntax
// error is logged and falls back to the default policy, setup still
// succeeds; keep an eye on the log to catch the misconfiguration.
func Setup(certFile string, keyFile string, cipherPolicy string, options ...Option) (store *Store, err error) {
	opts := Options{
		Logger: zap.NewNop(),
	}
	for _, o := range options {
		if err = o(&opts); err != nil {
			return
		}
	}
	logger := opts.Logger

	if certFile == "" {
		err = errors.New("credentials: setup failed", errors.WithWrap(ErrNoCertificateFile))
		return
	}

	certPEM, certErr := loadFile(certFile)
	if certErr != nil {
		err = errors.New("credentials: setup failed", errors.WithWrap(certErr))
		return
	}
	keyPEM, keyErr := loadFile(keyFile)
	if keyErr != nil {
		err = errors.New("credentials: setup failed", errors.WithWrap(keyErr))
		return
	}

	// The key is parsed before the chain so a swapped pair of paths fails
	// with the more useful error.
	key, parseKeyErr := parseKeyPEM(keyPEM)
	if parseKeyErr != nil {
		err = errors.New("credentials: setup failed", errors.WithWrap(parseKeyErr))
		return
	}

	chainDER, chainErr := parseChainPEM(certPEM)
	if chainErr != nil {
		err = errors.New("credentials: setup failed", errors.WithWrap(chainErr))
		return
	}

	chain := make([]*x509.Certificate, 0, len(chainDER))
	for _, der := range chainDER {
		cert, parseCertErr := x509.ParseCertificate(der)
		if parseCertErr != nil {
			err = errors.New("credentials: setup failed", errors.WithWrap(errors.Join(ErrParseChain, parseCertErr)))
			return
		}
		chain = append(chain, cert)
	}

	if matchErr := matchKeyPair(chain[0], key); matchErr != nil {
		err = errors.New("credentials: setup failed", errors.WithWrap(matchErr))
		return
	}

	// The same material serves server presentation and the forced client
	// identity, see Store.GetClientCertificate.
	identity := tls.Certificate{
		Certificate: chainDER,
		PrivateKey:  key,
		Leaf:        chain[0],
	}

	var dh *DHParams
	if opts.DHFile != "" {
		dhPEM, dhLoadErr := loadFile(opts.DHFile)
		if dhLoadErr != nil {
			logger.Warn("credentials: load dh parameters failed, continuing without dh support",
				zap.String("file", opts.DHFile), zap.Error(dhLoadErr))
		} else {
			parsed, dhParseErr := ParseDHParams(dhPEM)
			if dhParseErr != nil {
				logger.Warn("credentials: parse dh parameters failed, continuing without dh support",
					zap.String("file", opts.DHFile), zap.Error(dhParseErr))
			} else {
				dh = parsed
			}
		}
	}

	policy, policyErr := ParsePolicy(cipherPolicy)
	if policyErr != nil {
		logger.Error("credentials: syntax error in cipher policy, using default policy instead",
			zap.String("policy", cipherPolicy), zap.Error(policyErr))
		policy = DefaultPolicy()
	}

	store = &Store{
		identity: identity,
		chain:    chain,
		dh:       dh,
		policy:   policy,
	}
	return
}

// Leaf returns the first certificate of the configured chain.
func (store *Store) Leaf() *x509.Certificate {
	return store.chain[0]
}

// Chain returns the parsed certificate chain. Callers must not mutate it.
func (store *Store) Chain() []*x509.Certificate {
	return store.chain
}

// DH returns the loaded DH parameters, nil when DH support is disabled.
func (store *Store) DH() *DHParams {
	return store.dh
}

func (store *Store) Policy() *Policy {
	return store.policy
}

// GetCertificate presents the configured identity for server handshakes.
func (store *Store) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return &store.identity, nil
}

// GetClientCertificate always presents the configured identity, ignoring the
// server's acceptable issuer list. Default selection matches against that
// list, which comes up empty for self-signed deployments and would leave the
// client anonymous, breaking fingerprint auth on the far side.
func (store *Store) GetClientCertificate(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
	return &store.identity, nil
}

// ServerTLSConfig builds the engine configuration for a server role session.
// The peer certificate is requested but not required, and chain verification
// is left to the caller's fingerprint checks.
func (store *Store) ServerTLSConfig() *tls.Config {
	return &tls.Config{
		GetCertificate:     store.GetCertificate,
		ClientAuth:         tls.RequestClientCert,
		MinVersion:         store.policy.MinVersion,
		MaxVersion:         store.policy.MaxVersion,
		CipherSuites:       store.policy.CipherSuites,
		InsecureSkipVerify: true,
	}
}

// ClientTLSConfig builds the engine configuration for a client role session.
func (store *Store) ClientTLSConfig() *tls.Config {
	return &tls.Config{
		GetClientCertificate: store.GetClientCertificate,
		MinVersion:           store.policy.MinVersion,
		MaxVersion:           store.policy.MaxVersion,
		CipherSuites:         store.policy.CipherSuites,
		InsecureSkipVerify:   true,
	}
}

func loadFile(path string) ([]byte, error) {
	f, openErr := os.Open(path)
	if openErr != nil {
		return nil, errors.New("credentials: load file failed", errors.WithWrap(errors.Join(ErrLoadFile, openErr)))
	}
	defer func() {
		_ = f.Close()
	}()
	data, readErr := io.ReadAll(io.LimitReader(f, maxFileSize))
	if readErr != nil {
		return nil, errors.New("credentials: load file failed", errors.WithWrap(errors.Join(ErrLoadFile, readErr)))
	}
	return data, nil
}

// parseChainPEM collects the CERTIFICATE blocks of the PEM input into DER
// entries, failing when the fixed chain capacity is exceeded.
func parseChainPEM(certPEM []byte) ([][]byte, error) {
	var chain [][]byte
	rest := certPEM
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		if len(chain) == MaxChain {
			return nil, errors.New("credentials: parse certificate chain failed", errors.WithWrap(ErrChainCapacity))
		}
		chain = append(chain, block.Bytes)
	}
	if len(chain) == 0 {
		return nil, errors.New("credentials: parse certificate chain failed", errors.WithWrap(ErrParseChain))
	}
	return chain, nil
}
