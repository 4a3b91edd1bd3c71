package discovery

import (
	"os"
	"path/filepath"
)

// CandidateRoots returns the directories searched for module files: the
// executable's directory, baseDir, the working directory and extra, in that
// order. Paths are cleaned and made absolute; duplicates and anything that
// is not an existing directory are dropped.
func CandidateRoots(baseDir string, extra ...string) []string {
	candidates := make([]string, 0, 3+len(extra))
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Dir(exe))
	}
	candidates = append(candidates, baseDir)
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates, wd)
	}
	candidates = append(candidates, extra...)

	return normalizeRoots(candidates)
}

func normalizeRoots(candidates []string) []string {
	seen := make(map[string]struct{}, len(candidates))
	roots := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == "" {
			continue
		}
		abs, err := filepath.Abs(c)
		if err != nil {
			continue
		}
		abs = filepath.Clean(abs)
		if _, dup := seen[abs]; dup {
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			continue
		}
		seen[abs] = struct{}{}
		roots = append(roots, abs)
	}
	return roots
}
