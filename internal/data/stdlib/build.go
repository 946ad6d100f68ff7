// # internal/data/stdlib/build.go
package stdlib

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apexerrors "apexls/internal/core/errors"
)

// BuildCache writes a fresh artifact plus its checksum file. Used by the
// cache build step of a release and by tests that need a valid artifact.
func BuildCache(path string, types []Type, members []Member) error {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return apexerrors.New(apexerrors.CodeValidationError, "stdlib cache path must not be empty")
	}
	if dir := filepath.Dir(cleanPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create stdlib cache directory %q: %w", dir, err)
		}
	}
	// Rebuild from scratch so a stale artifact never leaks rows.
	if err := os.Remove(cleanPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	db, err := sql.Open(driverName, "file:"+cleanPath)
	if err != nil {
		return fmt.Errorf("create stdlib cache %q: %w", cleanPath, err)
	}
	defer db.Close()

	if err := ensureSchema(db); err != nil {
		return fmt.Errorf("initialize stdlib schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range types {
		if _, err := tx.Exec(
			`INSERT INTO stdlib_types (fqn, name, namespace, kind) VALUES (?, ?, ?, ?)`,
			t.FQN, t.Name, t.Namespace, int(t.Kind)); err != nil {
			return fmt.Errorf("insert stdlib type %q: %w", t.FQN, err)
		}
	}
	for _, m := range members {
		static := 0
		if m.IsStatic {
			static = 1
		}
		if _, err := tx.Exec(
			`INSERT INTO stdlib_members (type_fqn, name, kind, signature, is_static) VALUES (?, ?, ?, ?, ?)`,
			m.TypeFQN, m.Name, int(m.Kind), m.Signature, static); err != nil {
			return fmt.Errorf("insert stdlib member %s.%s: %w", m.TypeFQN, m.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if err := db.Close(); err != nil {
		return err
	}
	return writeChecksum(cleanPath)
}
