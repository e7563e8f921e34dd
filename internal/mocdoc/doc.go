// Package mocdoc is the structured reader/writer for vault documents.
//
// A node (MOC) document is split into a managed zone (YAML frontmatter plus
// the well-known generated headings) and a user zone, everything else.
// Every mutation in this package is targeted byte surgery: only the range
// belonging to the edited section changes, the rest of the document is
// byte-identical before and after.
package mocdoc

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/othala/internal/models"
)

// Well-known node section headings.
const (
	HeadingNotes         = "## Notes"
	HeadingPrerequisites = "## Prerequisites"
	HeadingLearningPaths = "## Learning Paths"
	HeadingCoreConcepts  = "## Core Concepts"
	HeadingParent        = "## Parent Topic"
	HeadingChildren      = "## Subtopics"
)

// Intelligence headings, inserted and replaced as a single block.
const (
	HeadingOverview      = "## Overview"
	HeadingKeyThemes     = "## Key Themes"
	HeadingRelationships = "## Conceptual Relationships"
	HeadingProgress      = "## Learning Progress"
	HeadingGaps          = "## Knowledge Gaps"
	HeadingCrossDomain   = "## Cross-Domain Connections"
	HeadingInsights      = "## Key Insights"
)

var intelligenceHeadings = []string{
	HeadingOverview,
	HeadingKeyThemes,
	HeadingRelationships,
	HeadingProgress,
	HeadingGaps,
	HeadingCrossDomain,
	HeadingInsights,
}

var wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)

// Doc is a parsed node document. Mutations operate on the raw bytes so the
// user zone survives untouched.
type Doc struct {
	raw []byte

	// Meta holds the parsed frontmatter. When Malformed is true the
	// frontmatter could not be decoded and Meta carries zero values;
	// callers treat that as an empty node rather than an error.
	Meta      models.NodeMeta
	Malformed bool

	bodyStart int // byte offset where the body (after frontmatter) begins
}

// ParseNode reads a node document. It never fails: undecodable frontmatter
// yields a Doc with zero Meta and Malformed set.
func ParseNode(data []byte) *Doc {
	d := &Doc{raw: data}

	fmBytes, bodyStart := splitFrontmatter(data)
	d.bodyStart = bodyStart
	if fmBytes == nil {
		d.Malformed = true
		return d
	}
	if err := yaml.Unmarshal(fmBytes, &d.Meta); err != nil {
		d.Malformed = true
		d.Meta = models.NodeMeta{}
	}
	return d
}

// IsNode reports whether the document declares itself a MOC.
func (d *Doc) IsNode() bool { return d.Meta.Type == "moc" }

// Raw returns the current document bytes.
func (d *Doc) Raw() []byte { return d.raw }

// Body returns the document text after the frontmatter block.
func (d *Doc) Body() string { return string(d.raw[d.bodyStart:]) }

// splitFrontmatter returns the YAML block between leading --- fences and the
// byte offset where the body begins. Returns (nil, 0) when there is no
// parseable frontmatter fence.
func splitFrontmatter(data []byte) ([]byte, int) {
	const fence = "---"
	if !bytes.HasPrefix(data, []byte(fence+"\n")) && !bytes.HasPrefix(data, []byte(fence+"\r\n")) {
		return nil, 0
	}
	rest := data[len(fence):]
	idx := bytes.Index(rest, []byte("\n"+fence))
	if idx < 0 {
		return nil, 0
	}
	yamlBlock := rest[:idx]
	// Skip past the closing fence line.
	end := len(fence) + idx + 1 + len(fence)
	if end < len(data) && data[end] == '\r' {
		end++
	}
	if end < len(data) && data[end] == '\n' {
		end++
	}
	return yamlBlock, end
}

// SetMeta re-renders the frontmatter block from meta, leaving the body
// byte-identical.
func (d *Doc) SetMeta(meta models.NodeMeta) error {
	fm, err := renderFrontmatter(meta)
	if err != nil {
		return err
	}
	body := d.raw[d.bodyStart:]
	d.raw = append(fm, body...)
	d.Meta = meta
	d.Malformed = false
	d.bodyStart = len(fm)
	return nil
}

func renderFrontmatter(meta models.NodeMeta) ([]byte, error) {
	out, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("mocdoc: marshal frontmatter: %w", err)
	}
	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(out)
	b.WriteString("---\n")
	return b.Bytes(), nil
}

// sectionRange locates [start, end) of a section: the heading line through
// the character before the next level-2 heading (or end of document).
// Returns ok=false when the heading is absent.
func (d *Doc) sectionRange(heading string) (start, end int, ok bool) {
	start = findHeading(d.raw, d.bodyStart, heading)
	if start < 0 {
		return 0, 0, false
	}
	end = nextHeadingAfter(d.raw, start+len(heading))
	return start, end, true
}

// findHeading returns the offset of the heading line, or -1. The heading
// must start a line and be followed by a line break (exact match, not a
// prefix of a longer heading).
func findHeading(data []byte, from int, heading string) int {
	h := []byte(heading)
	for i := from; i < len(data); {
		lineEnd := bytes.IndexByte(data[i:], '\n')
		var line []byte
		if lineEnd < 0 {
			line = data[i:]
		} else {
			line = data[i : i+lineEnd]
		}
		if bytes.Equal(bytes.TrimRight(line, "\r"), h) {
			return i
		}
		if lineEnd < 0 {
			break
		}
		i += lineEnd + 1
	}
	return -1
}

// nextHeadingAfter returns the offset of the next line starting with "## "
// at or after from, or len(data).
func nextHeadingAfter(data []byte, from int) int {
	for i := from; i < len(data); {
		lineEnd := bytes.IndexByte(data[i:], '\n')
		if bytes.HasPrefix(data[i:], []byte("## ")) && i > from {
			return i
		}
		if lineEnd < 0 {
			break
		}
		i += lineEnd + 1
	}
	return len(data)
}

// Section returns the text of a section body (without its heading line).
func (d *Doc) Section(heading string) (string, bool) {
	start, end, ok := d.sectionRange(heading)
	if !ok {
		return "", false
	}
	body := d.raw[start:end]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}
	return string(body), true
}

// Items returns the "- " bullet entries of a section, stripped of the
// bullet prefix.
func (d *Doc) Items(heading string) []string {
	body, ok := d.Section(heading)
	if !ok {
		return nil
	}
	var out []string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "- ") {
			out = append(out, strings.TrimSpace(trimmed[2:]))
		}
	}
	return out
}

// HasItem reports whether a section already carries the exact bullet item.
func (d *Doc) HasItem(heading, item string) bool {
	for _, it := range d.Items(heading) {
		if it == item {
			return true
		}
	}
	return false
}

// EnsureItem appends "- item" to the section unless an identical entry is
// already present. Returns true when the document changed. The item lands
// after the last existing bullet (or directly under the heading), keeping
// the blank-line framing around the section intact.
func (d *Doc) EnsureItem(heading, item string) bool {
	if d.HasItem(heading, item) {
		return false
	}
	start, end, ok := d.sectionRange(heading)
	if !ok {
		return false
	}

	section := d.raw[start:end]
	insert := insertOffsetForItem(section)

	var b bytes.Buffer
	b.Write(d.raw[:start])
	b.Write(section[:insert])
	b.WriteString("- " + item + "\n")
	b.Write(section[insert:])
	b.Write(d.raw[end:])
	d.raw = b.Bytes()
	return true
}

// insertOffsetForItem finds the offset within a section slice at which a new
// bullet line should be written: right after the last bullet line, or right
// after the heading line when the section has no bullets yet.
func insertOffsetForItem(section []byte) int {
	offset := 0
	afterLast := -1
	for i := 0; i < len(section); {
		lineEnd := bytes.IndexByte(section[i:], '\n')
		var next int
		var line []byte
		if lineEnd < 0 {
			line = section[i:]
			next = len(section)
		} else {
			line = section[i : i+lineEnd]
			next = i + lineEnd + 1
		}
		if offset == 0 {
			// First line is the heading.
			offset = next
		} else if strings.HasPrefix(strings.TrimSpace(string(line)), "- ") {
			afterLast = next
		}
		i = next
	}
	if afterLast >= 0 {
		return afterLast
	}
	return offset
}

// EnsureSection appends an empty section at the document end when the
// heading is absent. Returns true when the document changed.
func (d *Doc) EnsureSection(heading string) bool {
	if _, _, ok := d.sectionRange(heading); ok {
		return false
	}
	var b bytes.Buffer
	b.Write(d.raw)
	if len(d.raw) > 0 && d.raw[len(d.raw)-1] != '\n' {
		b.WriteString("\n")
	}
	b.WriteString("\n" + heading + "\n")
	d.raw = b.Bytes()
	return true
}

// Wikilinks returns the wikilink targets inside a section, aliases resolved.
func (d *Doc) Wikilinks(heading string) []string {
	body, ok := d.Section(heading)
	if !ok {
		return nil
	}
	return ExtractWikilinks(body)
}

// ExtractWikilinks returns deduplicated [[wikilink]] targets from text,
// normalising [[target|alias]] forms.
func ExtractWikilinks(text string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target := m[1]
		if i := strings.Index(target, "|"); i >= 0 {
			target = target[:i]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

// Link renders the canonical wikilink bullet text for a document stem.
func Link(stem string) string {
	return "[[" + stem + "]]"
}

// Stem strips the directory and .md extension from a vault path.
func Stem(path string) string {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(base, ".md")
}
