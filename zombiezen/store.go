// Package zombiezen implements the certs history interfaces on SQLite.
package zombiezen

import (
	"context"
	"fmt"

	certs "github.com/tycrek-archive/tycrek-certs-custom"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS certificates (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	identifier TEXT NOT NULL,
	domains TEXT NOT NULL,
	certificate_chain TEXT NOT NULL,
	private_key TEXT NOT NULL,
	issued_at TEXT NOT NULL,
	expires_at TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);
CREATE INDEX IF NOT EXISTS idx_certificates_issued_at ON certificates(issued_at);
`

// NewPool opens (creating if needed) the history database at path.
func NewPool(path string) (*sqlitex.Pool, error) {
	return sqlitex.NewPool(path, sqlitex.PoolOptions{
		Flags:    sqlite.OpenReadWrite | sqlite.OpenCreate,
		PoolSize: 1,
	})
}

// Store implements the certs.Writer and certs.Reader interfaces using
// zombiezen/sqlite.
type Store struct {
	pool *sqlitex.Pool
}

// NewStore creates a Store. The pool is created and managed externally.
func NewStore(pool *sqlitex.Pool) *Store {
	if pool == nil {
		panic("zombiezen.NewStore: received nil pool")
	}
	return &Store{pool: pool}
}

// Migrate ensures the certificates table exists.
func (s *Store) Migrate(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("db: failed to get connection: %w", err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("db: failed to apply schema: %w", err)
	}
	return nil
}

// AddCert appends a new certificate record to the history.
func (s *Store) AddCert(cert certs.Cert) error {
	conn, err := s.pool.Take(context.TODO())
	if err != nil {
		return fmt.Errorf("db: failed to get connection: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO certificates (
			identifier, domains, certificate_chain, private_key, issued_at, expires_at
		) VALUES (?, ?, ?, ?, ?, ?);`,
		&sqlitex.ExecOptions{
			Args: []interface{}{
				cert.Identifier,
				cert.Domains,
				cert.CertificateChain,
				cert.PrivateKey,
				certs.TimeFormat(cert.IssuedAt),
				certs.TimeFormat(cert.ExpiresAt),
			},
		})
	if err != nil {
		return fmt.Errorf("db: failed to insert certificate for identifier %q: %w", cert.Identifier, err)
	}
	return nil
}

// Latest returns up to n history records, newest first.
func (s *Store) Latest(n int) ([]certs.Cert, error) {
	conn, err := s.pool.Take(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("db: failed to get connection: %w", err)
	}
	defer s.pool.Put(conn)

	var out []certs.Cert
	err = sqlitex.Execute(conn,
		`SELECT id, identifier, domains, certificate_chain, private_key, issued_at, expires_at
		 FROM certificates ORDER BY issued_at DESC, id DESC LIMIT ?;`,
		&sqlitex.ExecOptions{
			Args: []interface{}{n},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				issuedAt, err := certs.ParseTime(stmt.GetText("issued_at"))
				if err != nil {
					return fmt.Errorf("parse issued_at: %w", err)
				}
				expiresAt, err := certs.ParseTime(stmt.GetText("expires_at"))
				if err != nil {
					return fmt.Errorf("parse expires_at: %w", err)
				}
				out = append(out, certs.Cert{
					ID:               stmt.GetInt64("id"),
					Identifier:       stmt.GetText("identifier"),
					Domains:          stmt.GetText("domains"),
					CertificateChain: stmt.GetText("certificate_chain"),
					PrivateKey:       stmt.GetText("private_key"),
					IssuedAt:         issuedAt,
					ExpiresAt:        expiresAt,
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("db: failed to query certificate history: %w", err)
	}
	return out, nil
}
