package persist

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSafeFileCommit(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "target.dat")

	sf, err := NewSafeFile(final)
	if err != nil {
		t.Fatal(err)
	}
	if sf.Name() == final {
		t.Fatal("temp file name should differ from final name")
	}
	if _, err := sf.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(final); err == nil {
		t.Fatal("final file should not exist before Commit")
	}
	if err := sf.Commit(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(final)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected contents: %q", data)
	}
}

func TestSafeFileCloseWithoutCommitLeavesNoFinalFile(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "target.dat")

	sf, err := NewSafeFile(final)
	if err != nil {
		t.Fatal(err)
	}
	sf.Write([]byte("abandoned"))
	sf.Close()

	if _, err := os.Stat(final); err == nil {
		t.Fatal("final file should not exist after Close without Commit")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected temp file to be removed, found %d entries", len(entries))
	}
}

func TestRandomSuffixUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s := RandomSuffix()
		if seen[s] {
			t.Fatalf("RandomSuffix produced a duplicate: %s", s)
		}
		seen[s] = true
	}
}
