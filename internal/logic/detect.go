package logic

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/stanza/internal/ir"
)

var extensions = map[string]ir.Language{
	".stz":    ir.Stanza,
	".cnf":    ir.Dimacs,
	".dimacs": ir.Dimacs,
}

// Detect returns the language of path from its extension.
func Detect(path string) (ir.Language, bool) {
	lang, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// Resolve finds an include target. Relative names are tried against dir,
// then against each search directory in order. It returns false when no
// candidate is a regular file.
func Resolve(dir, name string, searchDirs ...string) (string, bool) {
	if filepath.IsAbs(name) {
		return name, isFile(name)
	}
	for _, d := range append([]string{dir}, searchDirs...) {
		candidate := filepath.Join(d, name)
		if isFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
