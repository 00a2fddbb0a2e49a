package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func paths(units []Unit, root string) []string {
	out := make([]string, len(units))
	for i, u := range units {
		rel, _ := filepath.Rel(root, filepath.FromSlash(u.Path))
		out[i] = filepath.ToSlash(rel)
	}
	return out
}

func TestDiscover_SortedByExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main/java/com/acme/Zeta.java", "class Zeta {}")
	writeFile(t, root, "main/java/com/acme/Alpha.java", "class Alpha {}")
	writeFile(t, root, "main/resources/app.properties", "a=b")
	writeFile(t, root, "README.md", "# hi")

	units, err := Discover(Options{Root: root, Extensions: []string{".java"}})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"main/java/com/acme/Alpha.java",
		"main/java/com/acme/Zeta.java",
	}, paths(units, root))
	assert.Equal(t, "class Alpha {}", units[0].Content)
	assert.Equal(t, int64(len("class Alpha {}")), units[0].Size)
}

func TestDiscover_ExtensionWithoutDot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "A.JAVA", "class A {}")

	units, err := Discover(Options{Root: root, Extensions: []string{"java"}})
	require.NoError(t, err)
	assert.Len(t, units, 1)
}

func TestDiscover_IncludeExclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main/A.java", "a")
	writeFile(t, root, "test/ATest.java", "t")
	writeFile(t, root, "main/gen/Gen.java", "g")

	units, err := Discover(Options{
		Root:       root,
		Extensions: []string{".java"},
		Exclude:    []string{"test/**", "main/gen/**"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"main/A.java"}, paths(units, root))

	units, err = Discover(Options{
		Root:       root,
		Extensions: []string{".java"},
		Include:    []string{"**/*Test.java"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"test/ATest.java"}, paths(units, root))
}

func TestDiscover_SkipsOversizedBinaryAndHidden(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Small.java", "class Small {}")
	writeFile(t, root, "Big.java", string(make([]byte, 2048)))
	writeFile(t, root, "Bin.java", "class\x00Bin")
	writeFile(t, root, ".git/Hidden.java", "class Hidden {}")

	units, err := Discover(Options{Root: root, Extensions: []string{".java"}, MaxFileBytes: 1024})
	require.NoError(t, err)
	assert.Equal(t, []string{"Small.java"}, paths(units, root))
}

func TestDiscover_NoFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "notes.txt", "nothing here")

	_, err := Discover(Options{Root: root, Extensions: []string{".java"}})
	var de *DiscoveryError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Error(), "no source files")
}

func TestDiscover_MissingRoot(t *testing.T) {
	_, err := Discover(Options{Root: filepath.Join(t.TempDir(), "absent"), Extensions: []string{".java"}})
	var de *DiscoveryError
	require.ErrorAs(t, err, &de)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMatchesAny(t *testing.T) {
	tests := []struct {
		path     string
		patterns []string
		want     bool
	}{
		{"Foo.java", []string{"*.java"}, true},
		{"a/b/Foo.java", []string{"**/*.java"}, true},
		{"a/b/Foo.java", []string{"*.java"}, false},
		{"vendor/x/y.java", []string{"vendor/**"}, true},
		{"vendored/y.java", []string{"vendor/**"}, false},
		{"a/b.go", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesAny(tt.path, tt.patterns))
		})
	}
}
