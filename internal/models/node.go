// Package models defines the domain types for Othala.
package models

import (
	"strings"
	"time"
)

// TaxonomyPath is the ordered Domain → Area → Topic → Concept classification
// of a piece of content. Level 1 and 2 are mandatory; 3 and 4 are optional.
type TaxonomyPath struct {
	Domain  string `json:"domain" yaml:"level1"`
	Area    string `json:"area" yaml:"level2"`
	Topic   string `json:"topic,omitempty" yaml:"level3,omitempty"`
	Concept string `json:"concept,omitempty" yaml:"level4,omitempty"`
}

// Levels returns the non-empty labels in order. A gap in the middle ends the
// path: {Domain, Area, "", Concept} yields two levels.
func (p TaxonomyPath) Levels() []string {
	out := make([]string, 0, 4)
	for _, label := range []string{p.Domain, p.Area, p.Topic, p.Concept} {
		if strings.TrimSpace(label) == "" {
			break
		}
		out = append(out, label)
	}
	return out
}

// Depth returns the number of usable levels.
func (p TaxonomyPath) Depth() int { return len(p.Levels()) }

// LearningContext carries the pedagogical metadata an upstream classifier
// attaches to a leaf note.
type LearningContext struct {
	Prerequisites        []string `json:"prerequisites,omitempty" yaml:"prerequisites,omitempty"`
	RelatedConcepts      []string `json:"related_concepts,omitempty" yaml:"related_concepts,omitempty"`
	LearningPath         []string `json:"learning_path,omitempty" yaml:"learning_path,omitempty"`
	ComplexityLevel      string   `json:"complexity_level,omitempty" yaml:"complexity_level,omitempty"`
	EstimatedReadingTime string   `json:"estimated_reading_time,omitempty" yaml:"estimated_reading_time,omitempty"`
}

// Complexity levels recognised in learning contexts.
const (
	ComplexityBeginner     = "beginner"
	ComplexityIntermediate = "intermediate"
	ComplexityAdvanced     = "advanced"
)

// NodeMeta is the frontmatter of a MOC node document.
type NodeMeta struct {
	Type      string    `yaml:"type"` // always "moc"
	Title     string    `yaml:"title"`
	Domain    string    `yaml:"domain"`
	Level     int       `yaml:"level"`
	Created   time.Time `yaml:"created"`
	Updated   time.Time `yaml:"updated"`
	Tags      []string  `yaml:"tags"`
	NoteCount int       `yaml:"note_count"`
}

// LeafMeta is the frontmatter of a processed leaf note.
type LeafMeta struct {
	Title           string            `yaml:"title"`
	Hierarchy       map[string]string `yaml:"hierarchy"` // level1..level4
	LearningContext LearningContext   `yaml:"learning_context"`
	Source          string            `yaml:"source,omitempty"`
	Created         time.Time         `yaml:"created"`
	Tags            []string          `yaml:"tags,omitempty"`
}

// Taxonomy reconstructs the TaxonomyPath from the hierarchy frontmatter map.
func (m LeafMeta) Taxonomy() TaxonomyPath {
	return TaxonomyPath{
		Domain:  m.Hierarchy["level1"],
		Area:    m.Hierarchy["level2"],
		Topic:   m.Hierarchy["level3"],
		Concept: m.Hierarchy["level4"],
	}
}

// HierarchyMap builds the level1..level4 frontmatter map for a path.
func HierarchyMap(p TaxonomyPath) map[string]string {
	out := make(map[string]string, 4)
	for i, label := range p.Levels() {
		out[[...]string{"level1", "level2", "level3", "level4"}[i]] = label
	}
	return out
}

// FileMetadata is a lightweight representation returned by list operations.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DirEntry is one child of a vault directory: either a markdown document or
// a subdirectory.
type DirEntry struct {
	Name  string `json:"name"` // base name, .md kept for documents
	Path  string `json:"path"` // relative to vault root
	IsDir bool   `json:"is_dir"`
}
