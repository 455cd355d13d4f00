package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

// providers returns one fresh instance of every backend.
func providers(t *testing.T) map[string]Provider {
	t.Helper()
	dir := t.TempDir()
	out := map[string]Provider{}
	for _, b := range []struct{ name, path string }{
		{BackendFS, filepath.Join(dir, "fs")},
		{BackendSQLite, filepath.Join(dir, "prefs.db")},
		{BackendBolt, filepath.Join(dir, "prefs.bolt")},
	} {
		p, err := Open(b.name, b.path)
		if err != nil {
			t.Fatalf("Open(%s): %v", b.name, err)
		}
		t.Cleanup(func() { p.Close() })
		out[b.name] = p
	}
	return out
}

func TestProvider_PutGet(t *testing.T) {
	for name, p := range providers(t) {
		t.Run(name, func(t *testing.T) {
			if err := p.Put("notes_prefs", "note_list", []byte(`{"notes":[]}`)); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, err := p.Get("notes_prefs", "note_list")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != `{"notes":[]}` {
				t.Errorf("got %q", got)
			}
		})
	}
}

func TestProvider_Overwrite(t *testing.T) {
	for name, p := range providers(t) {
		t.Run(name, func(t *testing.T) {
			_ = p.Put("s", "k", []byte("v1"))
			if err := p.Put("s", "k", []byte("v2")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, _ := p.Get("s", "k")
			if string(got) != "v2" {
				t.Errorf("got %q, want v2", got)
			}
		})
	}
}

func TestProvider_MissingEntry(t *testing.T) {
	for name, p := range providers(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := p.Get("nothing", "here"); !errors.Is(err, ErrNotExist) {
				t.Errorf("err = %v, want ErrNotExist", err)
			}
			_ = p.Put("s", "other", []byte("x"))
			if _, err := p.Get("s", "k"); !errors.Is(err, ErrNotExist) {
				t.Errorf("err = %v, want ErrNotExist for missing key in existing store", err)
			}
		})
	}
}

func TestProvider_Delete(t *testing.T) {
	for name, p := range providers(t) {
		t.Run(name, func(t *testing.T) {
			_ = p.Put("s", "k", []byte("v"))
			if err := p.Delete("s", "k"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := p.Get("s", "k"); !errors.Is(err, ErrNotExist) {
				t.Errorf("err = %v, want ErrNotExist after delete", err)
			}
			if err := p.Delete("s", "k"); err != nil {
				t.Errorf("second Delete: %v", err)
			}
		})
	}
}

func TestProvider_StoresAreIsolated(t *testing.T) {
	for name, p := range providers(t) {
		t.Run(name, func(t *testing.T) {
			_ = p.Put("a", "k", []byte("from a"))
			_ = p.Put("b", "k", []byte("from b"))
			got, _ := p.Get("a", "k")
			if string(got) != "from a" {
				t.Errorf("store a = %q", got)
			}
		})
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open("redis", t.TempDir()); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestProvider_DeleteRejectsInvalidNames(t *testing.T) {
	for name, p := range providers(t) {
		t.Run(name, func(t *testing.T) {
			for _, c := range []struct{ store, key string }{
				{"", "k"},
				{"s", ""},
				{"..", "k"},
				{"s", "a/b"},
			} {
				if err := p.Delete(c.store, c.key); err == nil {
					t.Errorf("Delete(%q, %q) should fail", c.store, c.key)
				}
			}
		})
	}
}
