package certgen

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"math/big"
	"os"
	"time"
)

// DefaultKeyBits is the RSA modulus size of generated keys.
const DefaultKeyBits = 2048

// LibraryStrategy generates the pair in-process with crypto/x509.
type LibraryStrategy struct {
	Subject Subject
	// KeyBits defaults to DefaultKeyBits.
	KeyBits int
	// Now and Rand default to time.Now and crypto/rand.Reader.
	Now  func() time.Time
	Rand io.Reader
}

// Name implements Strategy.
func (s *LibraryStrategy) Name() string { return "x509" }

// Generate implements Strategy. The certificate is self-signed with SHA-256,
// the key is written as unencrypted PKCS#8.
func (s *LibraryStrategy) Generate(ctx context.Context, paths Paths) error {
	subject := s.Subject.withDefaults()

	// SANs are checked before any expensive work.
	dnsNames, ips, err := subject.SANs()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	random := s.Rand
	if random == nil {
		random = rand.Reader
	}
	bits := s.KeyBits
	if bits == 0 {
		bits = DefaultKeyBits
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	key, err := rsa.GenerateKey(random, bits)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrKeyGeneration, err)
	}

	serial, err := rand.Int(random, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("%w: serial number: %w", ErrSigning, err)
	}

	notBefore := now().UTC()
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               subject.name(),
		Issuer:                subject.name(),
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(subject.Validity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		SignatureAlgorithm:    x509.SHA256WithRSA,
		DNSNames:              dnsNames,
		IPAddresses:           ips,
	}

	der, err := x509.CreateCertificate(random, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSigning, err)
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return fmt.Errorf("%w: marshal key: %w", ErrSigning, err)
	}

	if err := paths.ensure(); err != nil {
		return err
	}
	if err := writePEM(paths.CertFile(), "CERTIFICATE", der, 0o644); err != nil {
		return err
	}
	return writePEM(paths.KeyFile(), "PRIVATE KEY", keyDER, 0o600)
}

func writePEM(path, blockType string, der []byte, perm os.FileMode) error {
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
