package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadPEM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(path, []byte(testPublicKeyPEM), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	testCases := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"inline", testPublicKeyPEM, false},
		{"file path", path, false},
		{"empty", "", true},
		{"whitespace", "  \n ", true},
		{"missing file", filepath.Join(dir, "missing.pem"), true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LoadPEM(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatal("LoadPEM should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadPEM: %v", err)
			}
			if !strings.Contains(string(got), "-----BEGIN PUBLIC KEY-----") {
				t.Errorf("LoadPEM = %q", got)
			}
		})
	}
}

func TestLoadPEM_EscapedNewlines(t *testing.T) {
	oneLine := strings.ReplaceAll(testPublicKeyPEM, "\n", `\n`)
	pub, err := ParsePublicKey(oneLine)
	if err != nil {
		t.Fatalf("ParsePublicKey(single-line PEM): %v", err)
	}
	if KeyAlg(pub) != "RS256" {
		t.Errorf("KeyAlg = %q", KeyAlg(pub))
	}
}

func TestParsePrivateKey(t *testing.T) {
	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	if _, ok := signer.(*rsa.PrivateKey); !ok {
		t.Fatalf("signer type = %T, want *rsa.PrivateKey", signer)
	}

	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalECPrivateKey(ecKey)
	if err != nil {
		t.Fatal(err)
	}
	ecPEM := string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))
	if _, err := ParsePrivateKey(ecPEM); err != nil {
		t.Errorf("ParsePrivateKey(EC): %v", err)
	}
}

func TestParseKeys_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		in   string
	}{
		{"not pem", "-----BEGIN nonsense"},
		{"unknown block type", "-----BEGIN CERTIFICATE REQUEST-----\nAAAA\n-----END CERTIFICATE REQUEST-----"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParsePrivateKey(tc.in); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("ParsePrivateKey err = %v, want ErrInvalidKey", err)
			}
			if _, err := ParsePublicKey(tc.in); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("ParsePublicKey err = %v, want ErrInvalidKey", err)
			}
		})
	}
	if _, err := ParsePublicKey(testPrivateKeyPEM); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("ParsePublicKey(private key) err = %v, want ErrInvalidKey", err)
	}
}

func TestKeyAlg(t *testing.T) {
	p256, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	p384, _ := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	rsaPub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name string
		key  any
		want string
	}{
		{"rsa", rsaPub, "RS256"},
		{"ecdsa p256", &p256.PublicKey, "ES256"},
		{"ecdsa p384", &p384.PublicKey, ""},
		{"unsupported", "not a key", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KeyAlg(tc.key); got != tc.want {
				t.Errorf("KeyAlg = %q, want %q", got, tc.want)
			}
		})
	}
}
