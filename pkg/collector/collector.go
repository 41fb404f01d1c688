// Package collector implements the local source collector (C8): a
// single-pass, lexicographically-ordered walk of a local directory tree
// that joins allow-listed file contents into one string, bounded by
// per-file and cumulative byte caps. Ignore/allow/sensitive-pattern lists
// load from an embedded YAML resource the same way the teacher's
// config.GetBuiltinConfig() loads its built-in pattern groups.
package collector

import (
	_ "embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed resources/selection.yaml
var selectionYAML []byte

type selectionDoc struct {
	IgnoreDirs        []string `yaml:"ignoreDirs"`
	AllowExtensions   []string `yaml:"allowExtensions"`
	AllowNames        []string `yaml:"allowNames"`
	SensitivePatterns []string `yaml:"sensitivePatterns"`
}

// hardcodedSensitiveFallback is used only if the embedded resource fails to
// parse; it is a strict superset of the common sensitive names so a
// loading failure never weakens filtering.
var hardcodedSensitiveFallback = []string{
	".env", ".env.*", "*.pem", "*.key", "*.p12", "*.jks", "*.keystore",
	"id_rsa", "id_rsa.*", "*credentials*", "*secret*", "*password*",
	"application-*.yml", "application-*.yaml", "application-*.properties",
}

var (
	selectionOnce sync.Once
	selection     selectionDoc
)

func loadSelection() {
	if err := yaml.Unmarshal(selectionYAML, &selection); err != nil {
		selection = selectionDoc{SensitivePatterns: hardcodedSensitiveFallback}
		return
	}
	// Defend against the superset invariant even when the resource parses:
	// union in the hardcoded fallback so a trimmed resource never weakens
	// filtering below the floor.
	have := make(map[string]bool, len(selection.SensitivePatterns))
	for _, p := range selection.SensitivePatterns {
		have[p] = true
	}
	for _, p := range hardcodedSensitiveFallback {
		if !have[p] {
			selection.SensitivePatterns = append(selection.SensitivePatterns, p)
		}
	}
}

func getSelection() selectionDoc {
	selectionOnce.Do(loadSelection)
	return selection
}

// Config carries the per-file and cumulative byte caps.
type Config struct {
	MaxFileSize  int64
	MaxTotalSize int64
}

// Result is the outcome of one collection pass.
type Result struct {
	JoinedContent string
	Summary       string
	FileCount     int
	ByteTotal     int64
}

// Collect walks rootPath once, in lexicographic order, joining allow-listed
// file contents under per-file headers, bounded by cfg's caps. Walking
// stops deterministically once the cumulative cap is reached.
func Collect(rootPath string, cfg Config) (Result, error) {
	sel := getSelection()
	ignoreDirs := toSet(sel.IgnoreDirs)
	allowExt := toSet(sel.AllowExtensions)
	allowName := toSet(sel.AllowNames)

	type entry struct {
		relPath string
		size    int64
	}
	var candidates []entry

	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(rootPath, path)
		if relErr != nil {
			rel = path
		}
		if d.IsDir() {
			if rel != "." && ignoreDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if isSensitive(rel, sel.SensitivePatterns) {
			return nil
		}
		if !allowName[d.Name()] && !allowExt[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		if info.Size() > cfg.MaxFileSize {
			return nil
		}
		candidates = append(candidates, entry{relPath: rel, size: info.Size()})
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("collector: walk %s: %w", rootPath, err)
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].relPath < candidates[j].relPath })

	var b strings.Builder
	var total int64
	var fileCount int
	for _, c := range candidates {
		if total+c.size > cfg.MaxTotalSize {
			break
		}
		data, readErr := readFileBounded(filepath.Join(rootPath, c.relPath), cfg.MaxFileSize)
		if readErr != nil {
			continue
		}
		b.WriteString("=== ")
		b.WriteString(filepath.ToSlash(c.relPath))
		b.WriteString(" ===\n")
		b.Write(data)
		b.WriteString("\n")
		total += int64(len(data))
		fileCount++
	}

	return Result{
		JoinedContent: b.String(),
		Summary:       fmt.Sprintf("%d files, %d bytes", fileCount, total),
		FileCount:     fileCount,
		ByteTotal:     total,
	}, nil
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, i := range items {
		s[i] = true
	}
	return s
}

func isSensitive(relPath string, patterns []string) bool {
	base := filepath.Base(relPath)
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, base); ok {
			return true
		}
	}
	return false
}
