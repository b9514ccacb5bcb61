// Package vault scans a folder of markdown notes into the documents
// the query executor consumes: front matter as records, body links,
// embeds and tags extracted, backlinks resolved.
package vault

import (
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// bodyRefs is what one markdown body contributes to a file record.
type bodyRefs struct {
	Links  []string
	Embeds []string
	Tags   []string
}

var (
	wikiPattern = regexp.MustCompile(`(!?)\[\[([^\]|#]+)(?:#[^\]|]*)?(?:\|[^\]]*)?\]\]`)
	tagPattern  = regexp.MustCompile(`(?:^|[\s(])#([A-Za-z][A-Za-z0-9_/-]*)`)
)

var markdown = goldmark.New()

type span struct{ start, stop int }

// extractRefs collects links, embeds and inline tags from a markdown
// body. Standard links and images come from the parsed tree; wiki
// syntax and tags are matched over the source with everything inside
// code blocks and code spans masked out.
func extractRefs(source []byte) bodyRefs {
	var refs bodyRefs
	seenLink := map[string]bool{}
	seenEmbed := map[string]bool{}
	seenTag := map[string]bool{}

	addLink := func(target string) {
		target = strings.TrimSpace(target)
		if target != "" && !seenLink[target] {
			seenLink[target] = true
			refs.Links = append(refs.Links, target)
		}
	}
	addEmbed := func(target string) {
		target = strings.TrimSpace(target)
		if target != "" && !seenEmbed[target] {
			seenEmbed[target] = true
			refs.Embeds = append(refs.Embeds, target)
		}
	}

	doc := markdown.Parser().Parse(text.NewReader(source))
	var code []span
	_ = gast.Walk(doc, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gast.Link:
			if target, ok := internalTarget(string(node.Destination)); ok {
				addLink(target)
			}
		case *gast.Image:
			addEmbed(string(node.Destination))
		case *gast.FencedCodeBlock, *gast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				s := lines.At(i)
				code = append(code, span{s.Start, s.Stop})
			}
		case *gast.CodeSpan:
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*gast.Text); ok {
					code = append(code, span{t.Segment.Start, t.Segment.Stop})
				}
			}
		}
		return gast.WalkContinue, nil
	})

	inCode := func(offset int) bool {
		for _, s := range code {
			if offset >= s.start && offset < s.stop {
				return true
			}
		}
		return false
	}

	for _, m := range wikiPattern.FindAllSubmatchIndex(source, -1) {
		if inCode(m[0]) {
			continue
		}
		target := string(source[m[4]:m[5]])
		if m[3] > m[2] { // leading '!'
			addEmbed(target)
		} else {
			addLink(target)
		}
	}
	for _, m := range tagPattern.FindAllSubmatchIndex(source, -1) {
		if inCode(m[2]) {
			continue
		}
		tag := string(source[m[2]:m[3]])
		if !seenTag[tag] {
			seenTag[tag] = true
			refs.Tags = append(refs.Tags, tag)
		}
	}

	sort.Strings(refs.Tags)
	return refs
}

// internalTarget reports whether a standard markdown destination
// points at another note rather than the web.
func internalTarget(dest string) (string, bool) {
	if strings.Contains(dest, "://") || strings.HasPrefix(dest, "#") {
		return "", false
	}
	if !strings.HasSuffix(dest, ".md") {
		return "", false
	}
	return dest, true
}
