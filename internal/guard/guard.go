// Package guard scans a checkout for leaked user-specific absolute paths.
package guard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"freecrafter/internal/runner"
)

const segment = `[^\\/\s]+`

type pattern struct {
	re     *regexp.Regexp
	reason string
}

var patterns = []pattern{
	{regexp.MustCompile(`(?i)C:\\` + `Users\\` + segment), "Windows user-profile path"},
	{regexp.MustCompile(`(?i)C:/` + `Users/` + segment), "Windows user-profile path"},
	{regexp.MustCompile(`(?i)/` + `home/` + segment), "POSIX home directory path"},
}

// allowlist holds repo-relative slash paths that are never scanned.
var allowlist = map[string]bool{
	".gitignore": true,
}

const placeholderChars = "<>{}|[]"

const binarySniff = 8000

// Finding is one leaked path.
type Finding struct {
	File    string `json:"file"`
	Reason  string `json:"reason"`
	Snippet string `json:"snippet"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s -> '%s'", f.File, f.Reason, f.Snippet)
}

// Scanner enumerates files under Root and reports leaked paths.
type Scanner struct {
	Root   string
	Runner runner.Runner
	Log    logrus.FieldLogger
}

// Scan checks every candidate file and returns findings sorted by file.
func (s *Scanner) Scan(ctx context.Context) ([]Finding, error) {
	files, err := s.Files(ctx)
	if err != nil {
		return nil, err
	}
	var findings []Finding
	for _, rel := range files {
		if allowlist[rel] {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.Root, filepath.FromSlash(rel)))
		if err != nil {
			continue
		}
		if isBinary(data) {
			continue
		}
		findings = append(findings, ScanText(rel, string(data))...)
	}
	sort.SliceStable(findings, func(i, j int) bool { return findings[i].File < findings[j].File })
	return findings, nil
}

// Files lists tracked files via git when Root is a work tree, otherwise every
// regular file outside .git. Paths are relative and slash-separated.
func (s *Scanner) Files(ctx context.Context) ([]string, error) {
	if files, ok := s.gitFiles(ctx); ok {
		return files, nil
	}
	return s.walkFiles()
}

func (s *Scanner) gitFiles(ctx context.Context) ([]string, bool) {
	if s.Runner == nil {
		return nil, false
	}
	if _, err := os.Stat(filepath.Join(s.Root, ".git")); err != nil {
		return nil, false
	}
	res, err := s.Runner.Run(ctx, "git", []string{"ls-files"}, runner.RunOptions{Dir: s.Root})
	if err != nil || res.ExitCode != 0 {
		s.logger().Warnf("git ls-files failed (%v); scanning the working tree instead", err)
		return nil, false
	}
	var files []string
	for _, line := range strings.Split(string(res.Stdout), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			files = append(files, line)
		}
	}
	return files, true
}

func (s *Scanner) walkFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(s.Root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", s.Root, err)
	}
	return files, nil
}

// ScanText reports every non-placeholder match in text.
func ScanText(rel, text string) []Finding {
	var findings []Finding
	for _, p := range patterns {
		for _, snippet := range p.re.FindAllString(text, -1) {
			if IsPlaceholder(snippet) {
				continue
			}
			findings = append(findings, Finding{File: rel, Reason: p.reason, Snippet: snippet})
		}
	}
	return findings
}

// IsPlaceholder reports whether snippet is a documented example such as a
// path with <user> in it.
func IsPlaceholder(snippet string) bool {
	return strings.ContainsAny(snippet, placeholderChars)
}

func isBinary(data []byte) bool {
	if len(data) > binarySniff {
		data = data[:binarySniff]
	}
	return bytes.IndexByte(data, 0) >= 0
}

func (s *Scanner) logger() logrus.FieldLogger {
	if s.Log != nil {
		return s.Log
	}
	return logrus.StandardLogger()
}
