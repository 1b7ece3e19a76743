package ignore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dlldepends/internal/dirio"
)

func TestBasicPatterns(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		// Simple file patterns
		{"*.Tests.csproj", "App.Tests.csproj", true},
		{"*.Tests.csproj", "tests/App.Tests/App.Tests.csproj", true},
		{"*.Tests.csproj", "src/App/App.csproj", false},

		// Directory patterns
		{"legacy/", "legacy/Old/Old.csproj", true},
		{"legacy/", "src/legacy/Old.csproj", true},
		{"legacy/", "legacy.csproj", false},

		// Anchored patterns
		{"/tests", "tests/A/A.csproj", true},
		{"/tests", "src/tests/A.csproj", false},

		// Double-star patterns
		{"**/samples/**", "samples/Demo/Demo.csproj", true},
		{"**/samples/**", "src/samples/Demo.csproj", true},

		// Specific paths
		{"src/*.csproj", "src/App.csproj", true},
		{"src/*.csproj", "src/App/App.csproj", false},
		{"src/**/*.vbproj", "src/App/App.vbproj", true},

		// Windows separators on either side
		{`tests\`, `tests\A\A.csproj`, true},
		{"tests/", `tests\A\A.csproj`, true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			m := Compile(nil)
			m.AddPattern(tt.pattern)
			assert.Equal(t, tt.want, m.Match(tt.path))
		})
	}
}

func TestNegation(t *testing.T) {
	m := Compile([]string{"tests/", "!tests/Integration/**"})

	assert.True(t, m.Match("tests/Unit/Unit.csproj"))
	assert.False(t, m.Match("tests/Integration/Integration.csproj"))
	assert.False(t, m.Match("src/App/App.csproj"))
}

func TestCommentsAndBlanks(t *testing.T) {
	m := Compile(nil)
	m.AddPattern("# This is a comment")
	m.AddPattern("")
	m.AddPattern("   ")
	m.AddPattern("*.sqlproj")

	assert.Equal(t, 1, m.Len())
	assert.True(t, m.Match("db/Db.sqlproj"))
}

func TestNilMatcher(t *testing.T) {
	var m *Matcher
	assert.False(t, m.Match("anything.csproj"))
}

func TestLoadFromSource(t *testing.T) {
	dir := t.TempDir()
	content := "# skip samples\nsamples/\n!samples/Keep/**\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644))
	src, err := dirio.OpenDirectory(dir)
	require.NoError(t, err)

	m, err := LoadFromSource(src, dir, []string{"*.Tests.csproj", "samples/Keep/Keep.csproj"})
	require.NoError(t, err)

	assert.Equal(t, 4, m.Len())
	assert.True(t, m.Match("test/App.Tests.csproj"))
	assert.True(t, m.Match("samples/Demo/Demo.csproj"))
	// The file's negation comes after the extra pattern and wins.
	assert.False(t, m.Match("samples/Keep/Keep.csproj"))
}

func TestLoadFromSource_MissingFile(t *testing.T) {
	dir := t.TempDir()
	src, err := dirio.OpenDirectory(dir)
	require.NoError(t, err)

	m, err := LoadFromSource(src, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
	assert.False(t, m.Match("src/App/App.csproj"))
}

func TestLoad(t *testing.T) {
	m := Compile(nil)
	require.NoError(t, m.Load(strings.NewReader("bin/\r\n# comment\r\n*.sqlproj\r\n")))
	assert.Equal(t, 2, m.Len())
	assert.True(t, m.Match(`bin\Debug\App.csproj`))
	assert.True(t, m.Match("db/Db.sqlproj"))
}
