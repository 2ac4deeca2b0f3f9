package certs

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/go-acme/lego/v4/certificate"
	"github.com/go-acme/lego/v4/challenge"
	"github.com/go-acme/lego/v4/challenge/dns01"
	"github.com/go-acme/lego/v4/lego"
	"github.com/go-acme/lego/v4/providers/dns/digitalocean"
	"github.com/go-acme/lego/v4/registration"
)

const (
	clientIdentifier = "tycrek-certs/1.0"
	dnsTimeout       = 10 * time.Minute

	keyFileName   = "privkey.pem"
	chainFileName = "fullchain.pem"
)

// acmeClient is the subset of the lego client the issuer drives. Narrowing
// to an interface keeps the state sequence testable without a CA.
type acmeClient interface {
	Register(options registration.RegisterOptions) (*registration.Resource, error)
	SetDNS01Provider(p challenge.Provider, opts ...dns01.ChallengeOption) error
	ObtainForCSR(request certificate.ObtainForCSRRequest) (*certificate.Resource, error)
}

type clientFactory func(*lego.Config) (acmeClient, error)

type providerFactory func(token string) (challenge.Provider, error)

// account implements lego's registration.User.
type account struct {
	email        string
	registration *registration.Resource
	key          crypto.PrivateKey
}

func (a *account) GetEmail() string                        { return a.email }
func (a *account) GetRegistration() *registration.Resource { return a.registration }
func (a *account) GetPrivateKey() crypto.PrivateKey        { return a.key }

// Issuer drives one certificate issuance run: Init, Account, optionally
// SetSavePath, then CreateCertificate, strictly in that order. An Issuer is
// not safe for concurrent use; concurrent runs need separate Issuers.
type Issuer struct {
	cfg    Config
	logger *slog.Logger

	clientFactory   clientFactory
	providerFactory providerFactory
	accountKeyMaker func() (crypto.PrivateKey, error)
	serverKeyMaker  func() (*rsa.PrivateKey, error)

	client    acmeClient
	account   *account
	serverKey *rsa.PrivateKey
	savePath  string
	notices   []string
	history   Writer
}

// New validates cfg and prepares the provider and client bindings. No
// network activity happens here.
func New(cfg Config, logger *slog.Logger) (*Issuer, error) {
	if logger == nil {
		panic("certs.New: received nil logger")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Issuer{
		cfg:             cfg,
		logger:          logger.With("component", "issuer"),
		clientFactory:   newLegoClient,
		providerFactory: newDNSProvider,
		accountKeyMaker: func() (crypto.PrivateKey, error) {
			return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		},
		serverKeyMaker: func() (*rsa.PrivateKey, error) {
			return rsa.GenerateKey(rand.Reader, 2048)
		},
		savePath: cfg.SavePath,
	}, nil
}

// RecordTo makes the issuer append every successful run to w. Optional;
// history failures never abort an issuance.
func (iss *Issuer) RecordTo(w Writer) {
	iss.history = w
}

func newLegoClient(cfg *lego.Config) (acmeClient, error) {
	client, err := lego.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &legoAdapter{client: client}, nil
}

type legoAdapter struct {
	client *lego.Client
}

func (l *legoAdapter) Register(options registration.RegisterOptions) (*registration.Resource, error) {
	return l.client.Registration.Register(options)
}

func (l *legoAdapter) SetDNS01Provider(p challenge.Provider, opts ...dns01.ChallengeOption) error {
	return l.client.Challenge.SetDNS01Provider(p, opts...)
}

func (l *legoAdapter) ObtainForCSR(request certificate.ObtainForCSRRequest) (*certificate.Resource, error) {
	return l.client.Certificate.ObtainForCSR(request)
}

func newDNSProvider(token string) (challenge.Provider, error) {
	pcfg := digitalocean.NewDefaultConfig()
	pcfg.AuthToken = token
	return digitalocean.NewDNSProviderConfig(pcfg)
}

// Init establishes the ACME session against the selected directory and
// generates fresh key pairs for the run: an EC account key and an RSA
// server key. Keys are never reused across runs. Directory-fetch failure is
// fatal; the caller restarts the whole run.
func (iss *Issuer) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	accountKey, err := iss.accountKeyMaker()
	if err != nil {
		return fmt.Errorf("generate account key: %w", err)
	}
	serverKey, err := iss.serverKeyMaker()
	if err != nil {
		return fmt.Errorf("generate server key: %w", err)
	}

	iss.account = &account{email: iss.cfg.SubscriberEmail, key: accountKey}

	legoCfg := lego.NewConfig(iss.account)
	legoCfg.CADirURL = iss.cfg.DirectoryURL()
	legoCfg.UserAgent = fmt.Sprintf("%s (+%s)", clientIdentifier, iss.cfg.MaintainerEmail)
	legoCfg.Certificate.KeyType = certcrypto.RSA2048

	// The directory document is fetched here.
	client, err := iss.clientFactory(legoCfg)
	if err != nil {
		iss.logger.Error("failed to create ACME client", "directory", legoCfg.CADirURL, "error", err)
		return fmt.Errorf("create ACME client for %s: %w", legoCfg.CADirURL, err)
	}

	provider, err := iss.providerFactory(iss.cfg.APIToken)
	if err != nil {
		iss.logger.Error("failed to create DNS provider", "error", err)
		return fmt.Errorf("create DNS provider: %w", err)
	}

	err = client.SetDNS01Provider(provider,
		dns01.AddDNSTimeout(dnsTimeout),
		dns01.PropagationWait(iss.cfg.propagationDelay(), true),
	)
	if err != nil {
		return fmt.Errorf("set DNS-01 provider: %w", err)
	}

	iss.client = client
	iss.serverKey = serverKey
	iss.notify(Event{Name: "init", Status: "ready", Message: "ACME session established"})
	return nil
}

// Account registers (or re-associates) the ACME account bound to the
// subscriber email and the account key from Init, with terms of service
// agreed. Failure is fatal to the run.
func (iss *Issuer) Account(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if iss.client == nil || iss.account == nil {
		return ErrSessionRequired
	}

	reg, err := iss.client.Register(registration.RegisterOptions{TermsOfServiceAgreed: true})
	if err != nil {
		iss.logger.Error("ACME account registration failed", "email", iss.account.email, "error", err)
		return fmt.Errorf("register ACME account for %s: %w", iss.account.email, err)
	}
	iss.account.registration = reg
	iss.logger.Info("ACME account registered", "email", iss.account.email, "uri", reg.URI)
	return nil
}

// SetSavePath records the directory the output files will be written to.
// Effective only for writes that have not happened yet; the working
// directory is used when never called. Path existence is checked at write
// time, not here.
func (iss *Issuer) SetSavePath(dir string) {
	iss.savePath = dir
}

// Result captures the outputs of a successful issuance.
type Result struct {
	KeyPath   string
	ChainPath string
	NotAfter  time.Time
}

// CreateCertificate builds a CSR from the server key and domain list,
// drives the delegated ACME authorization flow, and persists
// privkey.pem and fullchain.pem under the save path. Accumulated notices
// are reported at the end; they never fail a run the CA completed.
func (iss *Issuer) CreateCertificate(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if iss.client == nil || iss.serverKey == nil {
		return nil, ErrSessionRequired
	}
	if iss.account.registration == nil {
		return nil, ErrAccountRequired
	}

	csr, err := buildCSR(iss.serverKey, iss.cfg.Domains)
	if err != nil {
		return nil, &StageError{Stage: StageBuild, Err: err}
	}

	iss.notify(Event{
		Name:    "order",
		Domain:  iss.cfg.Domains[0],
		Status:  "pending",
		Message: "submitting certificate order",
	})

	// The whole authorization sub-protocol (order, TXT publication,
	// propagation wait, validation, finalization) is delegated to lego.
	res, err := iss.client.ObtainForCSR(certificate.ObtainForCSRRequest{
		CSR:    csr,
		Bundle: false,
	})
	if err != nil {
		return nil, &StageError{Stage: StageIssue, Err: err}
	}
	if len(res.Certificate) == 0 {
		return nil, &StageError{Stage: StageIssue, Err: errors.New("empty certificate payload from CA")}
	}
	if len(res.IssuerCertificate) == 0 {
		iss.notify(Event{Severity: SeverityWarning, Name: "order", Message: "CA returned no issuer chain"})
	}

	result, err := iss.writeArtifacts(res)
	if err != nil {
		return nil, &StageError{Stage: StageSave, Err: err}
	}

	iss.recordHistory(res, result)

	if len(iss.notices) > 0 {
		iss.logger.Warn("issuance completed with notices",
			"count", len(iss.notices),
			"notices", strings.Join(iss.notices, "; "))
	}
	iss.logger.Info("certificate issued",
		"domains", iss.cfg.Domains,
		"key", result.KeyPath,
		"chain", result.ChainPath,
		"not_after", result.NotAfter)
	return result, nil
}

func buildCSR(key crypto.Signer, domains []string) (*x509.CertificateRequest, error) {
	tmpl := &x509.CertificateRequest{
		Subject:  pkix.Name{CommonName: domains[0]},
		DNSNames: domains,
	}
	der, err := x509.CreateCertificateRequest(rand.Reader, tmpl, key)
	if err != nil {
		return nil, fmt.Errorf("encode CSR: %w", err)
	}
	return x509.ParseCertificateRequest(der)
}

func (iss *Issuer) writeArtifacts(res *certificate.Resource) (*Result, error) {
	dir := iss.savePath
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure output directory: %w", err)
	}

	keyPath := filepath.Join(dir, keyFileName)
	if err := os.WriteFile(keyPath, certcrypto.PEMEncode(iss.serverKey), 0o600); err != nil {
		return nil, fmt.Errorf("write %s: %w", keyFileName, err)
	}

	chainPath := filepath.Join(dir, chainFileName)
	if err := os.WriteFile(chainPath, joinPEM(res.Certificate, res.IssuerCertificate), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", chainFileName, err)
	}

	result := &Result{KeyPath: keyPath, ChainPath: chainPath}
	notAfter, err := certExpiry(res.Certificate)
	if err != nil {
		iss.notify(Event{
			Severity: SeverityWarning,
			Name:     "order",
			Message:  fmt.Sprintf("could not parse leaf certificate expiry: %v", err),
		})
	} else {
		result.NotAfter = notAfter
	}
	return result, nil
}

func (iss *Issuer) recordHistory(res *certificate.Resource, result *Result) {
	if iss.history == nil {
		return
	}

	domainsJSON, err := json.Marshal(iss.cfg.Domains)
	if err != nil {
		iss.notify(Event{Severity: SeverityWarning, Name: "history", Message: fmt.Sprintf("encode domain list: %v", err)})
		return
	}
	err = iss.history.AddCert(Cert{
		Identifier:       iss.cfg.Domains[0],
		Domains:          string(domainsJSON),
		CertificateChain: string(joinPEM(res.Certificate, res.IssuerCertificate)),
		PrivateKey:       string(certcrypto.PEMEncode(iss.serverKey)),
		IssuedAt:         time.Now().UTC(),
		ExpiresAt:        result.NotAfter,
	})
	if err != nil {
		iss.notify(Event{Severity: SeverityWarning, Name: "history", Message: fmt.Sprintf("record issuance: %v", err)})
	}
}

// joinPEM produces the fullchain layout: leaf first, then the issuer
// chain, one newline between blocks and a single trailing newline.
func joinPEM(blocks ...[]byte) []byte {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		s := strings.TrimRight(string(b), "\n")
		if s == "" {
			continue
		}
		parts = append(parts, s)
	}
	return []byte(strings.Join(parts, "\n") + "\n")
}

func certExpiry(certPEM []byte) (time.Time, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return time.Time{}, errors.New("no PEM block in certificate")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return time.Time{}, err
	}
	return cert.NotAfter.UTC(), nil
}
