package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.polar")

	if err := WriteAtomic(dst, []byte("first"), 0o644, false); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "first" {
		t.Fatalf("content = %q", got)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Fatalf("mode = %v, want 0644", info.Mode().Perm())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestWriteAtomicRefusesExisting(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.polar")
	if err := os.WriteFile(dst, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := WriteAtomic(dst, []byte("replace"), 0o644, false)
	if !errors.Is(err, ErrExists) {
		t.Fatalf("WriteAtomic error = %v, want ErrExists", err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "keep" {
		t.Fatalf("existing file modified: %q", got)
	}

	if err := WriteAtomic(dst, []byte("replace"), 0o644, true); err != nil {
		t.Fatalf("WriteAtomic overwrite: %v", err)
	}
	got, _ = os.ReadFile(dst)
	if string(got) != "replace" {
		t.Fatalf("content after overwrite = %q", got)
	}
}

func TestWriteAtomicReadOnlyDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	dir := t.TempDir()
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	dst := filepath.Join(dir, "out.polar")
	if err := WriteAtomic(dst, []byte("data"), 0o644, false); err == nil {
		t.Fatalf("expected error writing into read-only dir")
	}
	if err := CheckWritableDir(dir); err == nil {
		t.Fatalf("expected CheckWritableDir to fail")
	}
	if exists, _ := Exists(dst); exists {
		t.Fatalf("destination created in read-only dir")
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	if ok, err := Exists(dir); err != nil || !ok {
		t.Fatalf("Exists(dir) = %v, %v", ok, err)
	}
	if ok, err := Exists(filepath.Join(dir, "missing")); err != nil || ok {
		t.Fatalf("Exists(missing) = %v, %v", ok, err)
	}
}

func TestEnsureFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if err := EnsureFreeSpace(dir, 1, 0); err != nil {
		t.Fatalf("EnsureFreeSpace: %v", err)
	}
	err := EnsureFreeSpace(dir, 1, ^uint64(0)>>1)
	if !errors.Is(err, ErrInsufficientSpace) {
		t.Fatalf("EnsureFreeSpace error = %v, want ErrInsufficientSpace", err)
	}
	if err := CheckWritableDir(dir); err != nil {
		t.Fatalf("CheckWritableDir: %v", err)
	}
	if err := CheckWritableDir(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}
