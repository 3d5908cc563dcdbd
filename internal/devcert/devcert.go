// Package devcert writes the self-signed certificate the dev preset serves
// HTTPS with.
package devcert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// DefaultHosts are the names a local certificate is valid for.
var DefaultHosts = []string{"127.0.0.1", "localhost", "::1"}

// Options controls Generate.
type Options struct {
	CertFile string
	KeyFile  string
	Hosts    []string
	ValidFor time.Duration
	Now      func() time.Time
}

// Exists reports whether both files are present.
func Exists(certFile, keyFile string) bool {
	for _, p := range []string{certFile, keyFile} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// Generate creates an ECDSA P-256 key and a self-signed certificate for
// opts.Hosts and writes both as PEM. The key file is written 0600.
func Generate(opts Options) error {
	if opts.CertFile == "" || opts.KeyFile == "" {
		return errors.New("cert and key paths are required")
	}
	if len(opts.Hosts) == 0 {
		opts.Hosts = DefaultHosts
	}
	if opts.ValidFor <= 0 {
		opts.ValidFor = 365 * 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generating key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("generating serial: %w", err)
	}

	now := opts.Now()
	tmpl := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{"hanjahangul dev"}, CommonName: opts.Hosts[0]},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(opts.ValidFor),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	for _, h := range opts.Hosts {
		if ip := net.ParseIP(h); ip != nil {
			tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
		} else {
			tmpl.DNSNames = append(tmpl.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("creating certificate: %w", err)
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return fmt.Errorf("marshaling key: %w", err)
	}

	if err := writePEM(opts.CertFile, "CERTIFICATE", der, 0o644); err != nil {
		return err
	}
	return writePEM(opts.KeyFile, "PRIVATE KEY", keyDER, 0o600)
}

func writePEM(path, blockType string, der []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
