package stdlib

import "database/sql"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS stdlib_types (
  fqn TEXT NOT NULL PRIMARY KEY,
  name TEXT NOT NULL,
  namespace TEXT NOT NULL,
  kind INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_stdlib_types_name ON stdlib_types(name);
CREATE INDEX IF NOT EXISTS idx_stdlib_types_namespace ON stdlib_types(namespace);

CREATE TABLE IF NOT EXISTS stdlib_members (
  type_fqn TEXT NOT NULL,
  name TEXT NOT NULL,
  kind INTEGER NOT NULL,
  signature TEXT NOT NULL DEFAULT '',
  is_static INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (type_fqn, name, signature),
  FOREIGN KEY (type_fqn) REFERENCES stdlib_types(fqn)
);
CREATE INDEX IF NOT EXISTS idx_stdlib_members_type ON stdlib_members(type_fqn);
`

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(schemaSQL)
	return err
}
