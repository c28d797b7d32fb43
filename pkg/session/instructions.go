package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// candidateNames are checked in priority order at each directory level
// during the upward instruction-file walk (spec §4.5 System-prompt
// assembly).
var candidateNames = []string{
	"AGENTS.md",
	filepath.Join(".agent-sdk", "AGENTS.md"),
	filepath.Join(".agents", "AGENTS.md"),
	filepath.Join(".opencode", "AGENTS.md"),
	"CLAUDE.md",
	filepath.Join(".claude", "CLAUDE.md"),
}

// globalCandidates are the four optional candidates prepended under the
// user's home directory, after the upward walk, before the reverse.
func globalCandidates(home string) []string {
	return []string{
		filepath.Join(home, ".agent-sdk", "AGENTS.md"),
		filepath.Join(home, ".agents", "AGENTS.md"),
		filepath.Join(home, ".claude", "CLAUDE.md"),
		filepath.Join(home, "CLAUDE.md"),
	}
}

// discoverInstructionFiles walks from workingDir upward to either the
// nearest version-control root or the filesystem root, collecting the first
// matching candidate at each level, then appends the global home-directory
// candidates. The returned paths are in walk order (most specific directory
// first); assembleSystemPrompt reverses them.
func discoverInstructionFiles(workingDir string) []string {
	if strings.TrimSpace(workingDir) == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil
		}
		workingDir = wd
	}
	dir, err := filepath.Abs(workingDir)
	if err != nil {
		return nil
	}

	var found []string
	for {
		for _, name := range candidateNames {
			p := filepath.Join(dir, name)
			if fileExists(p) {
				found = append(found, p)
				break
			}
		}
		if isVCSRoot(dir) {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		for _, p := range globalCandidates(home) {
			if fileExists(p) {
				found = append(found, p)
			}
		}
	}
	return found
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isVCSRoot(dir string) bool {
	for _, marker := range []string{".git", ".hg", ".svn"} {
		if info, err := os.Stat(filepath.Join(dir, marker)); err == nil && info.IsDir() {
			return true
		}
	}
	return false
}

// assembleSystemPrompt discovers instruction files, reverses them so the
// most general instructions precede the most specific, concatenates each
// with an "Instructions from: <path>" header, and appends the result after
// the configured system prompt.
func assembleSystemPrompt(workingDir, configured string) (string, error) {
	files := discoverInstructionFiles(workingDir)

	var b strings.Builder
	b.WriteString(configured)

	for i := len(files) - 1; i >= 0; i-- {
		data, err := os.ReadFile(files[i])
		if err != nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Instructions from: %s\n%s", files[i], string(data))
	}
	return b.String(), nil
}
