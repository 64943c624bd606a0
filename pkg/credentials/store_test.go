package credentials_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/tlsio/pkg/credentials"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type material struct {
	certFile string
	keyFile  string
	certDER  []byte
}

func issue(t *testing.T, key *ecdsa.PrivateKey, serial int64) []byte {
	t.Helper()
	template := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject:      pkix.Name{CommonName: "tlsio test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	return der
}

func writeMaterial(t *testing.T, dir string) material {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	der := issue(t, key, 1)

	certFile := filepath.Join(dir, "cert.pem")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err = os.WriteFile(certFile, certPEM, 0o600); err != nil {
		t.Fatal(err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	keyFile := filepath.Join(dir, "key.pem")
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	if err = os.WriteFile(keyFile, keyPEM, 0o600); err != nil {
		t.Fatal(err)
	}

	return material{certFile: certFile, keyFile: keyFile, certDER: der}
}

func TestSetup(t *testing.T) {
	m := writeMaterial(t, t.TempDir())
	store, err := credentials.Setup(m.certFile, m.keyFile, "")
	if err != nil {
		t.Fatal(err)
	}
	if store.Leaf() == nil {
		t.Fatal("no leaf certificate")
	}
	if len(store.Chain()) != 1 {
		t.Fatalf("chain length = %d", len(store.Chain()))
	}
	if store.DH() != nil {
		t.Fatal("dh parameters present without a dh file")
	}
	if store.Policy().MinVersion != tls.VersionTLS12 {
		t.Fatalf("min version = %x", store.Policy().MinVersion)
	}
}

func TestSetupNoCertificateFile(t *testing.T) {
	_, err := credentials.Setup("", "", "")
	if !errors.Is(err, credentials.ErrNoCertificateFile) {
		t.Fatalf("err = %v", err)
	}
}

func TestSetupMissingFiles(t *testing.T) {
	dir := t.TempDir()
	m := writeMaterial(t, dir)

	_, err := credentials.Setup(filepath.Join(dir, "nope.pem"), m.keyFile, "")
	if !errors.Is(err, credentials.ErrLoadFile) {
		t.Fatalf("missing cert: err = %v", err)
	}
	_, err = credentials.Setup(m.certFile, filepath.Join(dir, "nope.pem"), "")
	if !errors.Is(err, credentials.ErrLoadFile) {
		t.Fatalf("missing key: err = %v", err)
	}
}

func TestSetupSwappedPaths(t *testing.T) {
	m := writeMaterial(t, t.TempDir())
	_, err := credentials.Setup(m.keyFile, m.certFile, "")
	if !errors.Is(err, credentials.ErrParseKey) {
		t.Fatalf("err = %v", err)
	}
}

func TestSetupKeyMismatch(t *testing.T) {
	dir := t.TempDir()
	m := writeMaterial(t, dir)

	other, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	otherDER, err := x509.MarshalECPrivateKey(other)
	if err != nil {
		t.Fatal(err)
	}
	otherFile := filepath.Join(dir, "other.pem")
	if err = os.WriteFile(otherFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: otherDER}), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err = credentials.Setup(m.certFile, otherFile, "")
	if !errors.Is(err, credentials.ErrKeyMismatch) {
		t.Fatalf("err = %v", err)
	}
}

func TestSetupChainCapacity(t *testing.T) {
	dir := t.TempDir()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	var chainPEM []byte
	for i := 0; i < credentials.MaxChain+1; i++ {
		der := issue(t, key, int64(i+1))
		chainPEM = append(chainPEM, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})...)
	}
	certFile := filepath.Join(dir, "chain.pem")
	if err = os.WriteFile(certFile, chainPEM, 0o600); err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	keyFile := filepath.Join(dir, "key.pem")
	if err = os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err = credentials.Setup(certFile, keyFile, "")
	if !errors.Is(err, credentials.ErrChainCapacity) {
		t.Fatalf("err = %v", err)
	}
}

func TestSetupCorruptDHContinues(t *testing.T) {
	dir := t.TempDir()
	m := writeMaterial(t, dir)
	dhFile := filepath.Join(dir, "dh.pem")
	if err := os.WriteFile(dhFile, []byte("-----BEGIN DH PARAMETERS-----\nAAAA\n-----END DH PARAMETERS-----\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	core, logs := observer.New(zapcore.WarnLevel)
	store, err := credentials.Setup(m.certFile, m.keyFile, "",
		credentials.WithDHFile(dhFile),
		credentials.WithLogger(zap.New(core)),
	)
	if err != nil {
		t.Fatal(err)
	}
	if store.DH() != nil {
		t.Fatal("corrupt dh parameters were accepted")
	}
	if logs.FilterLevelExact(zapcore.WarnLevel).Len() == 0 {
		t.Fatal("no warning logged for corrupt dh parameters")
	}
}

func TestSetupBadPolicyFallsBack(t *testing.T) {
	m := writeMaterial(t, t.TempDir())

	core, logs := observer.New(zapcore.ErrorLevel)
	store, err := credentials.Setup(m.certFile, m.keyFile, "BOGUS:+NOT-A-THING",
		credentials.WithLogger(zap.New(core)),
	)
	if err != nil {
		t.Fatal(err)
	}
	want := credentials.DefaultPolicy()
	if store.Policy().MinVersion != want.MinVersion || store.Policy().MaxVersion != want.MaxVersion {
		t.Fatalf("policy = %+v", store.Policy())
	}
	if logs.FilterLevelExact(zapcore.ErrorLevel).Len() == 0 {
		t.Fatal("no error logged for bad policy")
	}
}

func TestTLSConfigs(t *testing.T) {
	m := writeMaterial(t, t.TempDir())
	store, err := credentials.Setup(m.certFile, m.keyFile, "SECURE256")
	if err != nil {
		t.Fatal(err)
	}

	server := store.ServerTLSConfig()
	if server.ClientAuth != tls.RequestClientCert {
		t.Fatalf("client auth = %v", server.ClientAuth)
	}
	cert, err := server.GetCertificate(nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(cert.Certificate[0]) != string(m.certDER) {
		t.Fatal("server identity differs from configured certificate")
	}

	client := store.ClientTLSConfig()
	clientCert, err := client.GetClientCertificate(nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(clientCert.Certificate[0]) != string(m.certDER) {
		t.Fatal("client identity differs from configured certificate")
	}
	if len(client.CipherSuites) == 0 {
		t.Fatal("policy cipher suites not applied")
	}
}
