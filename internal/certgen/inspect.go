package certgen

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"
)

// Info summarises a certificate on disk.
type Info struct {
	CommonName string
	Issuer     string
	DNSNames   []string
	IPs        []string
	NotBefore  time.Time
	NotAfter   time.Time
	// SelfSigned is true when the certificate verifies against its own key.
	SelfSigned bool
}

// Validity returns NotAfter - NotBefore.
func (i *Info) Validity() time.Duration {
	return i.NotAfter.Sub(i.NotBefore)
}

// Inspect parses the first certificate in a PEM file.
func Inspect(certFile string) (*Info, error) {
	data, err := os.ReadFile(certFile)
	if err != nil {
		return nil, fmt.Errorf("read certificate: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errors.New("no PEM certificate found in " + certFile)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}

	info := &Info{
		CommonName: cert.Subject.CommonName,
		Issuer:     cert.Issuer.CommonName,
		DNSNames:   cert.DNSNames,
		NotBefore:  cert.NotBefore,
		NotAfter:   cert.NotAfter,
		SelfSigned: cert.CheckSignature(cert.SignatureAlgorithm, cert.RawTBSCertificate, cert.Signature) == nil,
	}
	for _, ip := range cert.IPAddresses {
		info.IPs = append(info.IPs, ip.String())
	}
	return info, nil
}
