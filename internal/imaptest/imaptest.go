// Package imaptest runs an in-process IMAP server over TLS for tests and
// demos.
//
// The server uses the go-imap in-memory backend, which ships a single
// account ([User], [Password]) with one message in INBOX. It presents a
// freshly generated self-signed certificate for 127.0.0.1 and localhost;
// clients trust it through [Server.TLSConfig] or [Server.CertPEM].
package imaptest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"time"

	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/server"
)

// Credentials of the account served by the in-memory backend.
const (
	User     = "username"
	Password = "password"
)

// Server is a running IMAP server.
type Server struct {
	srv  *server.Server
	ln   net.Listener
	leaf *x509.Certificate
	der  []byte
}

// Start listens on addr (e.g. "127.0.0.1:0") and serves IMAP over
// implicit TLS until Close is called.
func Start(addr string) (*Server, error) {
	cert, err := selfSignedCert()
	if err != nil {
		return nil, err
	}

	ln, err := tls.Listen("tcp", addr, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	srv := server.New(memory.New())
	// the connection is already encrypted; go-imap only knows about STARTTLS
	srv.AllowInsecureAuth = true

	go func() {
		if err := srv.Serve(ln); err != nil {
			slog.Debug("imap test server stopped", "error", err)
		}
	}()

	return &Server{srv: srv, ln: ln, leaf: cert.Leaf, der: cert.Certificate[0]}, nil
}

// Addr returns the listening address as "host:port".
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// TLSConfig returns a client configuration that trusts the server.
func (s *Server) TLSConfig() *tls.Config {
	pool := x509.NewCertPool()
	pool.AddCert(s.leaf)
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
}

// CertPEM returns the server certificate PEM-encoded.
func (s *Server) CertPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: s.der})
}

// Close stops the server and closes all connections.
func (s *Server) Close() error {
	return s.srv.Close()
}

func selfSignedCert() (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generating key: %w", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "mailpinger test server"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		DNSNames:              []string{"localhost"},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("creating certificate: %w", err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("parsing certificate: %w", err)
	}

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key, Leaf: leaf}, nil
}
