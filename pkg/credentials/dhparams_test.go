package credentials_test

import (
	"encoding/asn1"
	"encoding/pem"
	"math/big"
	"testing"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/tlsio/pkg/credentials"
)

func dhPEM(t *testing.T, value any) []byte {
	t.Helper()
	der, err := asn1.Marshal(value)
	if err != nil {
		t.Fatal(err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "DH PARAMETERS", Bytes: der})
}

func testPrime(bits int) *big.Int {
	p := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
	return p.Add(p, big.NewInt(159))
}

func TestParseDHParams(t *testing.T) {
	p := testPrime(1024)
	input := dhPEM(t, struct {
		P *big.Int
		G *big.Int
	}{P: p, G: big.NewInt(2)})

	dh, err := credentials.ParseDHParams(input)
	if err != nil {
		t.Fatal(err)
	}
	if dh.P.Cmp(p) != 0 {
		t.Fatal("prime round trip failed")
	}
	if dh.G.Int64() != 2 {
		t.Fatalf("generator = %v", dh.G)
	}
	if dh.PrivateValueLength != 0 {
		t.Fatalf("private value length = %d", dh.PrivateValueLength)
	}
	if dh.BitLen() != 1024 {
		t.Fatalf("bit length = %d", dh.BitLen())
	}
}

func TestParseDHParamsPrivateValueLength(t *testing.T) {
	input := dhPEM(t, struct {
		P *big.Int
		G *big.Int
		L int
	}{P: testPrime(2048), G: big.NewInt(5), L: 256})

	dh, err := credentials.ParseDHParams(input)
	if err != nil {
		t.Fatal(err)
	}
	if dh.PrivateValueLength != 256 {
		t.Fatalf("private value length = %d", dh.PrivateValueLength)
	}
}

func TestParseDHParamsErrors(t *testing.T) {
	cases := map[string][]byte{
		"empty input":  nil,
		"wrong block":  pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{0x30, 0x00}}),
		"not asn1":     pem.EncodeToMemory(&pem.Block{Type: "DH PARAMETERS", Bytes: []byte("garbage")}),
		"small prime": dhPEM(t, struct {
			P *big.Int
			G *big.Int
		}{P: testPrime(256), G: big.NewInt(2)}),
		"bad generator": dhPEM(t, struct {
			P *big.Int
			G *big.Int
		}{P: testPrime(1024), G: big.NewInt(1)}),
	}
	for name, input := range cases {
		if _, err := credentials.ParseDHParams(input); !errors.Is(err, credentials.ErrParseDH) {
			t.Errorf("%s: err = %v", name, err)
		}
	}
}
