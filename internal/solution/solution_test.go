package solution

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dlldepends/internal/dirio"
	"dlldepends/internal/filesource"
)

const sampleSolution = "\ufeff\r\n" +
	"Microsoft Visual Studio Solution File, Format Version 12.00\r\n" +
	"# Visual Studio Version 17\r\n" +
	"VisualStudioVersion = 17.5.33516.290\r\n" +
	`Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "App", "src\App\App.csproj", "{11111111-1111-1111-1111-111111111111}"` + "\r\n" +
	"EndProject\r\n" +
	`Project("{2150E333-8FDC-42A3-9474-1A3956D46DE8}") = "tests", "tests", "{22222222-2222-2222-2222-222222222222}"` + "\r\n" +
	"EndProject\r\n" +
	`	Project("{9A19103F-16F7-4668-BE54-9A1E7A4F7556}") = "Lib", "src/Lib/Lib.csproj", "{33333333-3333-3333-3333-333333333333}"` + "\r\n" +
	"EndProject\r\n" +
	"Global\r\n" +
	"	GlobalSection(SolutionConfigurationPlatforms) = preSolution\r\n" +
	"	EndGlobalSection\r\n" +
	"EndGlobal\r\n"

type mapSource map[string]string

func (m mapSource) ReadFile(path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("reading %s: %w", path, filesource.ErrNotFound)
	}
	return []byte(data), nil
}

func (m mapSource) Identifier() string { return "map" }
func (m mapSource) SourceType() string { return "map" }

func TestParse(t *testing.T) {
	projects := Parse(sampleSolution, "base")
	require.Len(t, projects, 3)

	assert.Equal(t, Project{
		TypeGUID: "{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}",
		Name:     "App",
		Path:     filepath.Join("base", `src\App\App.csproj`),
		GUID:     "{11111111-1111-1111-1111-111111111111}",
	}, projects[0])
	assert.False(t, projects[0].IsFolder())

	assert.Equal(t, "tests", projects[1].Name)
	assert.True(t, projects[1].IsFolder())

	assert.Equal(t, "Lib", projects[2].Name)
	assert.Equal(t, filepath.Join("base", "src", "Lib", "Lib.csproj"), projects[2].Path)
}

func TestParse_IgnoresOtherLines(t *testing.T) {
	text := strings.Join([]string{
		"EndProject",
		"ProjectSection(SolutionItems) = preProject",
		"	README.md = README.md",
		"EndProjectSection",
		`Project("{X}") = "NoPath"`,
		"",
	}, "\n")
	assert.Empty(t, Parse(text, "."))
}

func TestParse_StripsOneQuoteLayer(t *testing.T) {
	projects := Parse(`Project("{X}") = "A",   ""quoted.csproj"" , "{G}"`, "d")
	require.Len(t, projects, 1)
	assert.Equal(t, filepath.Join("d", `"quoted.csproj"`), projects[0].Path)
}

func TestEnumerateProjects_ScenarioA(t *testing.T) {
	dir := t.TempDir()
	sln := filepath.Join(dir, "Demo.sln")
	line := `Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "App", "App\App.csproj", "{5A1C1D3E-0000-0000-0000-000000000001}"`
	content := line + "\nEndProject\n" + line + "\nEndProject\n"
	require.NoError(t, os.WriteFile(sln, []byte(content), 0644))

	src, err := dirio.OpenDirectory(dir)
	require.NoError(t, err)

	paths, err := EnumerateProjects(src, sln)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	for _, p := range paths {
		assert.True(t, strings.HasSuffix(p, `App\App.csproj`), p)
		assert.Equal(t, filepath.Join(dir, `App\App.csproj`), p)
	}
}

func TestEnumerateProjects_Idempotent(t *testing.T) {
	src := mapSource{filepath.Join("repo", "All.sln"): sampleSolution}

	first, err := EnumerateProjects(src, filepath.Join("repo", "All.sln"))
	require.NoError(t, err)
	second, err := EnumerateProjects(src, filepath.Join("repo", "All.sln"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 3)
}

func TestEnumerateProjects_BareFileName(t *testing.T) {
	src := mapSource{"All.sln": `Project("{X}") = "A", "A\A.csproj", "{G}"`}
	paths, err := EnumerateProjects(src, "All.sln")
	require.NoError(t, err)
	assert.Equal(t, []string{`A\A.csproj`}, paths)
}

func TestEnumerateProjects_Errors(t *testing.T) {
	src := mapSource{}

	_, err := EnumerateProjects(src, "")
	assert.ErrorIs(t, err, ErrNoParent)

	_, err = EnumerateProjects(src, string(filepath.Separator))
	assert.ErrorIs(t, err, ErrNoParent)

	_, err = EnumerateProjects(src, filepath.Join("repo", "Missing.sln"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, filesource.ErrNotFound))
	assert.False(t, errors.Is(err, ErrNoParent))
}
