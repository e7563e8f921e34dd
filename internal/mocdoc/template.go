package mocdoc

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/othala/internal/models"
)

// levelNames maps hierarchy depth to the label used in callouts and tags.
var levelNames = map[int]string{
	1: "Domain",
	2: "Area",
	3: "Topic",
	4: "Concept",
}

// LevelName returns the human label for a hierarchy level.
func LevelName(level int) string {
	if n, ok := levelNames[level]; ok {
		return n
	}
	return fmt.Sprintf("Level %d", level)
}

// NodeTemplateInput carries everything needed to render a fresh node.
type NodeTemplateInput struct {
	Title      string
	Domain     string
	Level      int
	ParentStem string // empty for level-1 nodes
	Now        time.Time
}

// RenderNode produces the full initial content of a node document:
// frontmatter, title, info callout, navigation placeholders, and the empty
// managed sections. The intelligence block is absent until first synthesis.
func RenderNode(in NodeTemplateInput) ([]byte, error) {
	meta := models.NodeMeta{
		Type:      "moc",
		Title:     in.Title,
		Domain:    in.Domain,
		Level:     in.Level,
		Created:   in.Now,
		Updated:   in.Now,
		Tags:      nodeTags(in),
		NoteCount: 0,
	}
	fm, err := renderFrontmatter(meta)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.Write(fm)
	b.WriteString("\n# " + in.Title + "\n\n")

	b.WriteString("> [!info] " + LevelName(in.Level) + " MOC\n")
	if in.Level == 1 {
		b.WriteString("> Root of the " + in.Title + " domain. Sections below the managed headings are yours to edit.\n")
	} else {
		b.WriteString("> Part of the " + in.Domain + " domain. Sections below the managed headings are yours to edit.\n")
	}
	b.WriteString("\n")

	if in.ParentStem != "" {
		b.WriteString(HeadingParent + "\n\n- " + Link(in.ParentStem) + "\n\n")
	}
	b.WriteString(HeadingChildren + "\n\n")
	b.WriteString(HeadingNotes + "\n\n")
	b.WriteString(HeadingPrerequisites + "\n\n")
	b.WriteString(HeadingLearningPaths + "\n\n")
	b.WriteString(HeadingCoreConcepts + "\n")

	return []byte(b.String()), nil
}

func nodeTags(in NodeTemplateInput) []string {
	tags := []string{"moc", "moc/" + strings.ToLower(LevelName(in.Level))}
	if in.Domain != "" {
		tags = append(tags, "domain/"+slug(in.Domain))
	}
	return tags
}

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}

// RenderLeaf produces a leaf note document: frontmatter carrying the
// hierarchy and learning context, then the note content verbatim.
func RenderLeaf(meta models.LeafMeta, content string) ([]byte, error) {
	out, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("mocdoc: marshal leaf frontmatter: %w", err)
	}
	var b strings.Builder
	b.WriteString("---\n")
	b.Write(out)
	b.WriteString("---\n\n")
	b.WriteString(strings.TrimLeft(content, "\n"))
	if !strings.HasSuffix(content, "\n") {
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}

// ParseLeaf decodes a leaf note. Undecodable frontmatter yields zero meta
// and the whole document as body, mirroring ParseNode's tolerance.
func ParseLeaf(data []byte) (models.LeafMeta, string) {
	var meta models.LeafMeta
	fmBytes, bodyStart := splitFrontmatter(data)
	if fmBytes == nil {
		return meta, string(data)
	}
	if err := yaml.Unmarshal(fmBytes, &meta); err != nil {
		return models.LeafMeta{}, string(data)
	}
	return meta, string(data[bodyStart:])
}
