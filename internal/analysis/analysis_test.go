package analysis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stanza/internal/ir"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func TestBuild_FollowsIncludes(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.stz":      "declare x\ninclude \"a.stz\"\ninclude \"extra.cnf\"\ncheck\n",
		"a.stz":         "include \"b.stz\"\n",
		"b.stz":         "declare y\n",
		"inc/extra.cnf": "p cnf 1 1\n1 0\n",
	})
	root := filepath.Join(dir, "main.stz")

	g, problems := Build(root, "", []string{filepath.Join(dir, "inc")})

	assert.Empty(t, problems)
	assert.Equal(t, []string{
		root,
		filepath.Join(dir, "a.stz"),
		filepath.Join(dir, "inc", "extra.cnf"),
		filepath.Join(dir, "b.stz"),
	}, g.Order)
	assert.Equal(t, 4, g.Files[root].Statements)
	assert.Equal(t, ir.Dimacs, g.Files[filepath.Join(dir, "inc", "extra.cnf")].Lang)
	require.Len(t, g.Files[root].Includes, 2)
	assert.Equal(t, 2, g.Files[root].Includes[0].Loc.StartLine)
	assert.Empty(t, Cycles(g))
}

func TestBuild_IncludedLanguageDefaultsToParent(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.stz": "include \"defs.txt\"\n",
		"defs.txt": "declare z\n",
	})

	g, problems := Build(filepath.Join(dir, "main.stz"), "", nil)

	assert.Empty(t, problems)
	assert.Equal(t, ir.Stanza, g.Files[filepath.Join(dir, "defs.txt")].Lang)
}

func TestBuild_Problems(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.stz": "declare x\ninclude \"gone.stz\"\ninclude \"bad.stz\"\n",
		"bad.stz":  "declare ok\n  frobnicate y\n",
	})

	g, problems := Build(filepath.Join(dir, "main.stz"), "", nil)

	require.Len(t, problems, 2)
	assert.Equal(t, ProblemMissing, problems[0].Kind)
	assert.Equal(t, `included file "gone.stz" not found`, problems[0].Message)
	assert.Equal(t, 2, problems[0].Loc.StartLine)

	assert.Equal(t, ProblemParse, problems[1].Kind)
	assert.Equal(t, filepath.Join(dir, "bad.stz"), problems[1].Loc.File)
	assert.Equal(t, 2, problems[1].Loc.StartLine)
	assert.Equal(t, 3, problems[1].Loc.StartCol)
	assert.Equal(t, 1, g.Files[filepath.Join(dir, "bad.stz")].Statements, "statements before the error count")
}

func TestBuild_RootFailures(t *testing.T) {
	dir := writeFiles(t, map[string]string{"notes.txt": "declare x\n"})

	_, problems := Build(filepath.Join(dir, "notes.txt"), "", nil)
	require.Len(t, problems, 1)
	assert.Equal(t, ProblemLanguage, problems[0].Kind)

	_, problems = Build(filepath.Join(dir, "absent.stz"), "", nil)
	require.Len(t, problems, 1)
	assert.Equal(t, ProblemRead, problems[0].Kind)

	g, problems := Build(filepath.Join(dir, "notes.txt"), ir.Stanza, nil)
	assert.Empty(t, problems)
	assert.Equal(t, 1, g.Files[filepath.Join(dir, "notes.txt")].Statements)
}

func TestCycles_SelfInclude(t *testing.T) {
	dir := writeFiles(t, map[string]string{"loop.stz": "declare y\ninclude \"loop.stz\"\n"})
	root := filepath.Join(dir, "loop.stz")

	g, problems := Build(root, "", nil)
	require.Empty(t, problems)

	cycles := Cycles(g)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{root, root}, cycles[0].Path)
	assert.Equal(t, 2, cycles[0].Loc.StartLine)
	assert.Equal(t, "file includes itself: "+root, cycles[0].Message)
}

func TestCycles_MultiFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.stz": "include \"a.stz\"\n",
		"a.stz":    "declare x\ninclude \"b.stz\"\n",
		"b.stz":    "include \"a.stz\"\n",
	})
	a, b := filepath.Join(dir, "a.stz"), filepath.Join(dir, "b.stz")

	g, problems := Build(filepath.Join(dir, "main.stz"), "", nil)
	require.Empty(t, problems)

	cycles := Cycles(g)
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{a, b, a}, cycles[0].Path)
	assert.Equal(t, a, cycles[0].Loc.File)
	assert.Equal(t, 2, cycles[0].Loc.StartLine)
	assert.Contains(t, cycles[0].Message, "include cycle: ")
}

func TestCycles_DiamondIsAcyclic(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.stz": "include \"a.stz\"\ninclude \"b.stz\"\n",
		"a.stz":    "include \"c.stz\"\n",
		"b.stz":    "include \"c.stz\"\n",
		"c.stz":    "declare x\n",
	})

	g, problems := Build(filepath.Join(dir, "main.stz"), "", nil)
	require.Empty(t, problems)

	assert.Len(t, g.Order, 4, "c.stz is parsed once")
	assert.Empty(t, Cycles(g))
}
