package certgen

import (
	"crypto/x509/pkix"
	"fmt"
	"math"
	"net"
	"strings"
	"time"
)

// DefaultValidity is how long generated certificates stay valid.
const DefaultValidity = 365 * 24 * time.Hour

// DefaultHosts are the names covered by the subject alternative name extension.
var DefaultHosts = []string{"localhost", "127.0.0.1"}

// Subject holds the identity written into generated certificates.
type Subject struct {
	CommonName   string
	Organization string
	Country      string
	Province     string
	Locality     string
	// Hosts become DNS or IP subject alternative names.
	Hosts    []string
	Validity time.Duration
}

// DefaultSubject returns the localhost development identity.
func DefaultSubject() Subject {
	return Subject{
		CommonName:   "localhost",
		Organization: "Event Matcher Dev",
		Country:      "US",
		Province:     "Development",
		Locality:     "Localhost",
		Hosts:        append([]string(nil), DefaultHosts...),
		Validity:     DefaultValidity,
	}
}

func (s Subject) withDefaults() Subject {
	d := DefaultSubject()
	if s.CommonName == "" {
		s.CommonName = d.CommonName
	}
	if s.Organization == "" {
		s.Organization = d.Organization
	}
	if s.Country == "" {
		s.Country = d.Country
	}
	if s.Province == "" {
		s.Province = d.Province
	}
	if s.Locality == "" {
		s.Locality = d.Locality
	}
	if s.Hosts == nil {
		s.Hosts = d.Hosts
	}
	if s.Validity <= 0 {
		s.Validity = d.Validity
	}
	return s
}

func (s Subject) name() pkix.Name {
	return pkix.Name{
		CommonName:   s.CommonName,
		Organization: []string{s.Organization},
		Country:      []string{s.Country},
		Province:     []string{s.Province},
		Locality:     []string{s.Locality},
	}
}

// opensslSubject renders the subject in the -subj form openssl expects.
func (s Subject) opensslSubject() string {
	return fmt.Sprintf("/C=%s/ST=%s/L=%s/O=%s/CN=%s",
		s.Country, s.Province, s.Locality, s.Organization, s.CommonName)
}

// opensslSAN renders the subjectAltName extension value for openssl -addext.
func opensslSAN(dns []string, ips []net.IP) string {
	entries := make([]string, 0, len(dns)+len(ips))
	for _, d := range dns {
		entries = append(entries, "DNS:"+d)
	}
	for _, ip := range ips {
		entries = append(entries, "IP:"+ip.String())
	}
	return "subjectAltName=" + strings.Join(entries, ",")
}

// days rounds the validity up to whole days.
func (s Subject) days() int {
	return int(math.Ceil(s.Validity.Hours() / 24))
}

// SANs splits Hosts into DNS names and IP addresses. At least one host is
// required.
func (s Subject) SANs() (dns []string, ips []net.IP, err error) {
	if len(s.Hosts) == 0 {
		return nil, nil, fmt.Errorf("%w: no hosts", ErrInvalidSAN)
	}
	for _, h := range s.Hosts {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, nil, fmt.Errorf("%w: empty host", ErrInvalidSAN)
		}
		if ip := net.ParseIP(h); ip != nil {
			ips = append(ips, ip)
			continue
		}
		if looksNumeric(h) {
			return nil, nil, fmt.Errorf("%w: malformed IP address %q", ErrInvalidSAN, h)
		}
		if !validDNSName(h) {
			return nil, nil, fmt.Errorf("%w: malformed DNS name %q", ErrInvalidSAN, h)
		}
		dns = append(dns, h)
	}
	return dns, ips, nil
}

// looksNumeric reports whether h is made only of characters found in IP
// literals, so it was meant as an address rather than a name.
func looksNumeric(h string) bool {
	hasColon := strings.Contains(h, ":")
	for _, r := range h {
		switch {
		case r >= '0' && r <= '9', r == '.':
		case hasColon && (r == ':' || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')):
		default:
			return false
		}
	}
	return true
}

func validDNSName(h string) bool {
	if len(h) > 253 {
		return false
	}
	for i, label := range strings.Split(h, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		if label == "*" && i == 0 {
			continue
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, r := range label {
			if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-') {
				return false
			}
		}
	}
	return true
}
