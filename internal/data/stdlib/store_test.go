package stdlib

import (
	"os"
	"path/filepath"
	"testing"

	apexerrors "apexls/internal/core/errors"
	"apexls/internal/engine/registry"
	"apexls/internal/symbols"
)

func sampleTypes() []Type {
	return []Type{
		{FQN: "System.String", Name: "String", Namespace: "System", Kind: symbols.KindClass},
		{FQN: "System.Exception", Name: "Exception", Namespace: "System", Kind: symbols.KindClass},
		{FQN: "Database.Batchable", Name: "Batchable", Namespace: "Database", Kind: symbols.KindInterface},
		{FQN: "Schema.SObjectType", Name: "SObjectType", Namespace: "Schema", Kind: symbols.KindClass},
	}
}

func sampleMembers() []Member {
	return []Member{
		{TypeFQN: "System.String", Name: "valueOf", Kind: symbols.KindMethod, Signature: "(Object)", IsStatic: true},
		{TypeFQN: "System.String", Name: "length", Kind: symbols.KindMethod, Signature: "()"},
		{TypeFQN: "System.Exception", Name: "getMessage", Kind: symbols.KindMethod, Signature: "()"},
	}
}

func buildTestCache(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apex-stdlib.db")
	if err := BuildCache(path, sampleTypes(), sampleMembers()); err != nil {
		t.Fatalf("build cache: %v", err)
	}
	return path
}

func TestBuildAndOpenRoundTrip(t *testing.T) {
	path := buildTestCache(t)

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer store.Close()

	types, err := store.Types()
	if err != nil {
		t.Fatalf("query types: %v", err)
	}
	if len(types) != 4 {
		t.Fatalf("expected 4 types, got %d", len(types))
	}
	// Ordered by FQN.
	if types[0].FQN != "Database.Batchable" {
		t.Errorf("expected Database.Batchable first, got %s", types[0].FQN)
	}

	members, err := store.MembersOf("System.String")
	if err != nil {
		t.Fatalf("query members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	if members[1].Name != "valueOf" || !members[1].IsStatic {
		t.Errorf("unexpected member row: %+v", members[1])
	}
}

func TestOpen_MissingChecksumFileFailsFast(t *testing.T) {
	path := buildTestCache(t)
	if err := os.Remove(path + ChecksumSuffix); err != nil {
		t.Fatal(err)
	}

	_, err := Open(path)
	if !apexerrors.IsCode(err, apexerrors.CodeCacheIntegrity) {
		t.Fatalf("expected CACHE_INTEGRITY, got %v", err)
	}
}

func TestOpen_TamperedArtifactFailsFast(t *testing.T) {
	path := buildTestCache(t)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte{0x00}); err != nil {
		t.Fatal(err)
	}
	f.Close()

	_, err = Open(path)
	if !apexerrors.IsCode(err, apexerrors.CodeCacheIntegrity) {
		t.Fatalf("expected CACHE_INTEGRITY, got %v", err)
	}
}

func TestOpen_MalformedChecksumFailsFast(t *testing.T) {
	path := buildTestCache(t)
	for _, content := range []string{"", "nothex", "deadbeef  wrong-name.db\n"} {
		if err := os.WriteFile(path+ChecksumSuffix, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Open(path); !apexerrors.IsCode(err, apexerrors.CodeCacheIntegrity) {
			t.Fatalf("checksum %q: expected CACHE_INTEGRITY, got %v", content, err)
		}
	}
}

func TestLoadIntoRegistry(t *testing.T) {
	path := buildTestCache(t)
	reg := registry.NewRegistry()

	n, err := LoadIntoRegistry(path, reg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 types registered, got %d", n)
	}

	entry, ok := reg.GetType("system.exception")
	if !ok {
		t.Fatal("expected case-insensitive stdlib lookup to hit")
	}
	if !entry.IsStdlib {
		t.Error("expected IsStdlib to be set")
	}
	if entry.Namespace != "System" {
		t.Errorf("unexpected namespace %q", entry.Namespace)
	}
}

func TestLoadIntoRegistry_IntegrityFailureRegistersNothing(t *testing.T) {
	path := buildTestCache(t)
	if err := os.Remove(path + ChecksumSuffix); err != nil {
		t.Fatal(err)
	}
	reg := registry.NewRegistry()

	if _, err := LoadIntoRegistry(path, reg); err == nil {
		t.Fatal("expected error")
	}
	if got := reg.Stats().TotalTypes; got != 0 {
		t.Fatalf("expected empty registry after failed load, got %d types", got)
	}
}
