// # internal/data/stdlib/store.go
package stdlib

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.lsp.dev/uri"
	_ "modernc.org/sqlite"

	apexerrors "apexls/internal/core/errors"
	"apexls/internal/engine/registry"
	"apexls/internal/symbols"
)

const driverName = "sqlite"

// Type is one precompiled standard-library type row.
type Type struct {
	FQN       string
	Name      string
	Namespace string
	Kind      symbols.SymbolKind
}

// Member is one method, property, or enum value of a stdlib type.
type Member struct {
	TypeFQN   string
	Name      string
	Kind      symbols.SymbolKind
	Signature string
	IsStatic  bool
}

// Store reads a precompiled stdlib artifact. The artifact is immutable at
// runtime and its sha256 digest is verified before the database is opened.
type Store struct {
	path string
	db   *sql.DB
}

// Open verifies the artifact checksum and opens the database read-only.
// Any integrity problem fails fast with CACHE_INTEGRITY.
func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, apexerrors.New(apexerrors.CodeValidationError, "stdlib cache path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, apexerrors.New(apexerrors.CodeValidationError,
			fmt.Sprintf("stdlib cache path %q is a directory, expected file", cleanPath))
	}

	if err := verifyChecksum(cleanPath); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(2000)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, apexerrors.Wrap(err, apexerrors.CodeInternal, "open stdlib cache")
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, apexerrors.Wrap(err, apexerrors.CodeCacheIntegrity, "stdlib cache is not a readable database")
	}
	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Types returns every precompiled type, ordered by FQN.
func (s *Store) Types() ([]Type, error) {
	rows, err := s.db.Query(`SELECT fqn, name, namespace, kind FROM stdlib_types ORDER BY fqn`)
	if err != nil {
		return nil, apexerrors.Wrap(err, apexerrors.CodeInternal, "query stdlib types")
	}
	defer rows.Close()

	var types []Type
	for rows.Next() {
		var t Type
		var kind int
		if err := rows.Scan(&t.FQN, &t.Name, &t.Namespace, &kind); err != nil {
			return nil, apexerrors.Wrap(err, apexerrors.CodeInternal, "scan stdlib type row")
		}
		t.Kind = symbols.SymbolKind(kind)
		types = append(types, t)
	}
	return types, rows.Err()
}

// MembersOf returns the members of one type, ordered by name.
func (s *Store) MembersOf(fqn string) ([]Member, error) {
	rows, err := s.db.Query(
		`SELECT type_fqn, name, kind, signature, is_static FROM stdlib_members WHERE type_fqn = ? ORDER BY name, signature`,
		fqn)
	if err != nil {
		return nil, apexerrors.Wrap(err, apexerrors.CodeInternal, "query stdlib members")
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		var kind int
		var static int
		if err := rows.Scan(&m.TypeFQN, &m.Name, &kind, &m.Signature, &static); err != nil {
			return nil, apexerrors.Wrap(err, apexerrors.CodeInternal, "scan stdlib member row")
		}
		m.Kind = symbols.SymbolKind(kind)
		m.IsStatic = static != 0
		members = append(members, m)
	}
	return members, rows.Err()
}

// LoadIntoRegistry verifies, opens, and registers the whole artifact.
// Returns the number of types registered.
func LoadIntoRegistry(path string, reg *registry.Registry) (int, error) {
	started := time.Now()
	store, err := Open(path)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	types, err := store.Types()
	if err != nil {
		return 0, err
	}

	entries := make([]registry.Entry, 0, len(types))
	for _, t := range types {
		entries = append(entries, registry.Entry{
			FQN:       t.FQN,
			Name:      t.Name,
			Namespace: t.Namespace,
			Kind:      t.Kind,
			SymbolID:  t.FQN,
			FileURI:   uri.URI("apexstdlib://" + t.FQN),
			IsStdlib:  true,
		})
	}
	reg.RegisterTypes(entries)
	slog.Info("stdlib cache loaded",
		"path", path, "types", len(entries), "took", time.Since(started))
	return len(entries), nil
}
