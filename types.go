package certs

import "time"

// Cert is one issued certificate as recorded in the history store.
type Cert struct {
	ID               int64     // Primary key (populated on insert)
	Identifier       string    // Identifier for the cert request (primary domain)
	Domains          string    // JSON array of all domains covered
	CertificateChain string    // PEM encoded certificate chain
	PrivateKey       string    // PEM encoded private key for the cert (sensitive!)
	IssuedAt         time.Time // UTC timestamp of issuance
	ExpiresAt        time.Time // UTC timestamp of expiry
}

// Writer stores issuance history records.
type Writer interface {
	AddCert(cert Cert) error
}

// Reader retrieves issuance history records, newest first.
type Reader interface {
	Latest(n int) ([]Cert, error)
}

// TimeFormat renders a timestamp the way the history store expects it.
func TimeFormat(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseTime is the inverse of TimeFormat. An empty string maps to the zero
// time.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
