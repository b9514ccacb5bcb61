package vault

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sambeau/cress/pkg/cress/evaluator"
	"github.com/sambeau/cress/pkg/cress/query"
)

// Scanner walks a vault folder and produces query documents. A
// scanner with a cache only re-reads notes whose mtime or size
// changed since the last scan.
type Scanner struct {
	Root  string
	Cache *Cache
}

// NewScanner returns a scanner over the given vault root.
func NewScanner(root string) *Scanner {
	return &Scanner{Root: root}
}

// Scan reads every markdown note under the root and returns the
// documents sorted by path, with backlinks resolved. Unreadable notes
// and broken front matter are reported as warnings, not errors.
func (s *Scanner) Scan() ([]*query.Document, []string, error) {
	paths, err := s.listNotes()
	if err != nil {
		return nil, nil, err
	}

	var warnings []string
	docs := make([]*query.Document, 0, len(paths))
	existing := map[string]bool{}
	for _, rel := range paths {
		existing[rel] = true
		doc, warn := s.scanNote(rel)
		if warn != "" {
			warnings = append(warnings, warn)
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	}

	if s.Cache != nil {
		if err := s.Cache.Prune(existing); err != nil {
			warnings = append(warnings, fmt.Sprintf("cache prune: %s", err))
		}
	}

	resolveBacklinks(docs)
	return docs, warnings, nil
}

// listNotes collects the relative paths of every .md file, skipping
// hidden files and folders (.obsidian and friends).
func (s *Scanner) listNotes() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") && path != s.Root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !isNotePath(name) {
			return nil
		}
		rel, err := filepath.Rel(s.Root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.Root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// scanNote reads one note, from the cache when possible, and builds
// its document.
func (s *Scanner) scanNote(rel string) (*query.Document, string) {
	full := filepath.Join(s.Root, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Sprintf("%s: %s", rel, err)
	}
	mtime := info.ModTime().UnixMilli()
	size := info.Size()

	var note *cachedNote
	if s.Cache != nil {
		if hit, ok := s.Cache.Lookup(rel, mtime, size); ok {
			note = hit
		}
	}
	if note == nil {
		source, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Sprintf("%s: %s", rel, err)
		}
		front, body := splitFrontMatter(source)
		refs := extractRefs(body)
		note = &cachedNote{
			Front:  front,
			Body:   body,
			Links:  refs.Links,
			Embeds: refs.Embeds,
			Tags:   refs.Tags,
		}
		if s.Cache != nil {
			if err := s.Cache.Store(rel, mtime, size, note); err != nil {
				return nil, fmt.Sprintf("%s: cache: %s", rel, err)
			}
		}
	}

	properties, err := parseFrontMatter(note.Front)
	warn := ""
	if err != nil {
		warn = fmt.Sprintf("%s: front matter: %s", rel, err)
	}

	base := filepath.Base(rel)
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	file := &evaluator.File{
		Name:       strings.TrimSuffix(base, filepath.Ext(base)),
		Path:       rel,
		Folder:     folderOf(rel),
		Ext:        ext,
		Size:       size,
		Ctime:      info.ModTime(),
		Mtime:      info.ModTime(),
		Properties: properties,
		Tags:       mergeTags(note.Tags, properties),
		Links:      note.Links,
		Embeds:     note.Embeds,
		Text:       string(note.Body),
	}
	return &query.Document{Path: rel, Note: properties, File: file}, warn
}

func isNotePath(name string) bool {
	return strings.HasSuffix(name, ".md") || strings.HasSuffix(name, ".markdown")
}

func folderOf(rel string) string {
	dir := filepath.ToSlash(filepath.Dir(rel))
	if dir == "." {
		return ""
	}
	return dir
}

// mergeTags unions body tags with the front matter tags property.
func mergeTags(bodyTags []string, properties *evaluator.Record) []string {
	seen := map[string]bool{}
	var tags []string
	add := func(tag string) {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
		if tag != "" && !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	for _, t := range bodyTags {
		add(t)
	}
	if val, ok := properties.Get("tags"); ok {
		switch v := val.(type) {
		case *evaluator.List:
			for _, e := range v.Elements {
				add(evaluator.DisplayString(e))
			}
		case *evaluator.String:
			for _, t := range strings.Split(v.Value, ",") {
				add(t)
			}
		}
	}
	sort.Strings(tags)
	return tags
}

// resolveBacklinks fills every file's backlinks from the other files'
// outbound links. Link targets match by normalized path, or by bare
// note name when that name is unique in the vault.
func resolveBacklinks(docs []*query.Document) {
	byPath := map[string]*evaluator.File{}
	byName := map[string]*evaluator.File{}
	ambiguous := map[string]bool{}
	for _, doc := range docs {
		byPath[evaluator.NormalizePath(doc.File.Path)] = doc.File
		name := doc.File.Name
		if _, dup := byName[name]; dup {
			ambiguous[name] = true
		}
		byName[name] = doc.File
	}

	for _, doc := range docs {
		for _, target := range doc.File.Links {
			normalized := evaluator.NormalizePath(target)
			linked, ok := byPath[normalized]
			if !ok && !strings.Contains(normalized, "/") && !ambiguous[normalized] {
				linked, ok = byName[normalized]
			}
			if ok && linked.Path != doc.File.Path {
				linked.Backlinks = append(linked.Backlinks, doc.File.Path)
			}
		}
	}
	for _, doc := range docs {
		sort.Strings(doc.File.Backlinks)
	}
}
