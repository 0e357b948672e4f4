package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		key  string
		want Location
	}{
		{"welcome-visitors", Location{Root: RootPages, Key: "welcome-visitors"}},
		{"recycler/old-page", Location{Root: RootRecycle, Key: "old-page"}},
		{"nested/page", Location{Root: RootPages, Key: "nested/page"}},
	}
	for _, tt := range tests {
		got, err := Resolve(tt.key)
		if err != nil {
			t.Fatalf("Resolve(%q) error: %v", tt.key, err)
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %+v, want %+v", tt.key, got, tt.want)
		}
	}
}

func TestResolveRejectsEscapingKeys(t *testing.T) {
	for _, key := range []string{"", "/etc/passwd", "../secret", "a/../b", "recycler/", "recycler/../x", `a\b`, "a//b"} {
		if _, err := Resolve(key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Resolve(%q) error = %v, want ErrInvalidKey", key, err)
		}
	}
}

// backendSuite runs the shared contract against any Backend.
func backendSuite(t *testing.T, newBackend func(t *testing.T) Backend) {
	t.Run("write read exists", func(t *testing.T) {
		b := newBackend(t)
		require.False(t, b.Exists("example-a"))
		require.NoError(t, b.Write("example-a", []byte(`{"title":"Example A"}`)))
		require.True(t, b.Exists("example-a"))
		data, err := b.Read("example-a")
		require.NoError(t, err)
		require.Equal(t, `{"title":"Example A"}`, string(data))
	})

	t.Run("read missing", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Read("missing")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("write overwrites", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Write("example-a", []byte("one")))
		require.NoError(t, b.Write("example-a", []byte("two")))
		data, err := b.Read("example-a")
		require.NoError(t, err)
		require.Equal(t, "two", string(data))
	})

	t.Run("recycler keys are separate", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Write("recycler/example-a", []byte("old")))
		require.False(t, b.Exists("example-a"))
		require.True(t, b.Exists("recycler/example-a"))
		keys, err := b.List()
		require.NoError(t, err)
		require.Empty(t, keys)
	})

	t.Run("rename overwrites destination", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Write("example-a", []byte("new")))
		require.NoError(t, b.Write("recycler/example-a", []byte("old")))
		require.NoError(t, b.Rename("example-a", "recycler/example-a"))
		require.False(t, b.Exists("example-a"))
		data, err := b.Read("recycler/example-a")
		require.NoError(t, err)
		require.Equal(t, "new", string(data))
	})

	t.Run("rename missing", func(t *testing.T) {
		b := newBackend(t)
		require.ErrorIs(t, b.Rename("missing", "recycler/missing"), ErrNotFound)
	})

	t.Run("copy keeps source", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Write("example-a", []byte("new")))
		require.NoError(t, b.Write("recycler/example-a", []byte("old")))
		require.NoError(t, b.Copy("example-a", "recycler/example-a"))
		src, err := b.Read("example-a")
		require.NoError(t, err)
		dst, err := b.Read("recycler/example-a")
		require.NoError(t, err)
		require.Equal(t, "new", string(src))
		require.Equal(t, "new", string(dst))
	})

	t.Run("remove", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Write("recycler/example-a", []byte("{}")))
		require.NoError(t, b.Remove("recycler/example-a"))
		require.False(t, b.Exists("recycler/example-a"))
		require.ErrorIs(t, b.Remove("recycler/example-a"), ErrNotFound)
	})

	t.Run("list", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Write("example-b", []byte("{}")))
		require.NoError(t, b.Write("example-a", []byte("{}")))
		keys, err := b.List()
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"example-a", "example-b"}, keys)
	})

	t.Run("invalid key", func(t *testing.T) {
		b := newBackend(t)
		require.ErrorIs(t, b.Write("../escape", []byte("x")), ErrInvalidKey)
		require.False(t, b.Exists("../escape"))
	})
}

func TestFileBackend(t *testing.T) {
	backendSuite(t, func(t *testing.T) Backend {
		dir := t.TempDir()
		b, err := NewFile(filepath.Join(dir, "pages"), filepath.Join(dir, "recycle"))
		require.NoError(t, err)
		return b
	})
}

func TestMemoryBackend(t *testing.T) {
	backendSuite(t, func(t *testing.T) Backend {
		return NewMemory()
	})
}

func TestSQLiteBackend(t *testing.T) {
	backendSuite(t, func(t *testing.T) Backend {
		b, err := NewSQLite(filepath.Join(t.TempDir(), "wiki.db"))
		require.NoError(t, err)
		t.Cleanup(func() { b.Close() })
		return b
	})
}

func TestPostgresIntegrationBackend(t *testing.T) {
	dsn := os.Getenv("WIKI_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("WIKI_TEST_POSTGRES_DSN not set")
	}
	backendSuite(t, func(t *testing.T) Backend {
		b, err := NewPostgres(dsn)
		require.NoError(t, err)
		t.Cleanup(func() {
			_, _ = b.db.Exec("DELETE FROM " + b.table)
			b.Close()
		})
		_, err = b.db.Exec("DELETE FROM " + b.table)
		require.NoError(t, err)
		return b
	})
}

func TestFileBackendLayout(t *testing.T) {
	dir := t.TempDir()
	pagesDir := filepath.Join(dir, "pages")
	recyclerDir := filepath.Join(dir, "recycle")
	b, err := NewFile(pagesDir, recyclerDir)
	require.NoError(t, err)

	require.DirExists(t, pagesDir)
	require.NoError(t, b.Write("recycler/old-page", []byte("{}")))
	require.FileExists(t, filepath.Join(recyclerDir, "old-page"))

	require.NoError(t, os.WriteFile(filepath.Join(pagesDir, ".DS_Store"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(pagesDir, "assets"), 0o755))
	keys, err := b.List()
	require.NoError(t, err)
	require.Equal(t, []string{".DS_Store"}, keys)

	info, err := os.Stat(filepath.Join(recyclerDir, "old-page"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(filePerms), info.Mode().Perm())
}

func TestReadOnlyDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "how-to-wiki"), []byte(`{"title":"How To Wiki"}`), 0o644))

	src := NewReadOnlyDir(dir)
	require.True(t, src.Exists("how-to-wiki"))
	require.False(t, src.Exists("recycler/how-to-wiki"))
	data, err := src.Read("how-to-wiki")
	require.NoError(t, err)
	require.Contains(t, string(data), "How To Wiki")
	require.ErrorIs(t, src.Write("x", nil), ErrReadOnly)
	require.ErrorIs(t, src.Remove("how-to-wiki"), ErrReadOnly)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	dirs := Dirs{Pages: filepath.Join(dir, "pages"), Recycler: filepath.Join(dir, "recycle")}

	b, err := Open("", dirs)
	require.NoError(t, err)
	require.IsType(t, &File{}, b)

	b, err = Open("memory:", dirs)
	require.NoError(t, err)
	require.IsType(t, &Memory{}, b)

	b, err = Open("sqlite://"+filepath.Join(dir, "wiki.db"), dirs)
	require.NoError(t, err)
	require.IsType(t, &SQL{}, b)
	require.NoError(t, b.Close())

	_, err = Open("redis://localhost", dirs)
	require.ErrorContains(t, err, "unsupported storage scheme")
}

func TestOpenRegisteredFactory(t *testing.T) {
	called := false
	Register("custom", func(dsn string, dirs Dirs) (Backend, error) {
		called = true
		return NewMemory(), nil
	})
	b, err := Open("custom://anything", Dirs{})
	require.NoError(t, err)
	require.NotNil(t, b)
	require.True(t, called)
}

func TestSQLRebind(t *testing.T) {
	s := &SQL{dialect: PostgresDialect}
	got := s.rebind("SELECT 1 WHERE a = ? AND b = ?")
	require.Equal(t, "SELECT 1 WHERE a = $1 AND b = $2", got)
	s.dialect = SQLiteDialect
	require.Equal(t, "a = ?", s.rebind("a = ?"))
}
