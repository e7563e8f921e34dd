package intelligence

import (
	"fmt"
	"strings"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/mocdoc"
)

// Apply rewrites the node's managed intelligence block from analysis. An
// empty analysis is an idempotent no-op: nothing is written, so nodes never
// accumulate placeholder sections. Bytes outside the intelligence block are
// untouched apart from the frontmatter's updated timestamp.
func (s *Synthesizer) Apply(nodeAddr string, analysis Analysis) error {
	if analysis.Empty() {
		return nil
	}

	data, err := s.store.Read(nodeAddr)
	if err != nil {
		return fmt.Errorf("intelligence: node %s: %w", nodeAddr, apperr.ErrNotFound)
	}
	doc := mocdoc.ParseNode(data)
	doc.ReplaceIntelligence(Render(analysis))

	if !doc.Malformed {
		meta := doc.Meta
		now := s.now().UTC()
		if now.After(meta.Updated) {
			meta.Updated = now
		}
		if err := doc.SetMeta(meta); err != nil {
			return err
		}
	}

	if err := s.store.Write(nodeAddr, doc.Raw()); err != nil {
		return fmt.Errorf("intelligence: write node %s: %w", nodeAddr, err)
	}
	return nil
}

// Render produces the markdown of the intelligence block. Sections with
// nothing to say are omitted entirely rather than rendered empty.
func Render(a Analysis) string {
	var b strings.Builder

	section := func(heading string, write func()) {
		b.WriteString(heading + "\n\n")
		write()
		b.WriteString("\n")
	}

	if a.Overview != "" {
		section(mocdoc.HeadingOverview, func() {
			b.WriteString(a.Overview + "\n")
		})
	}
	if len(a.KeyThemes) > 0 {
		section(mocdoc.HeadingKeyThemes, func() {
			for _, theme := range a.KeyThemes {
				b.WriteString("- " + theme + "\n")
			}
		})
	}
	if a.Relationships != "" {
		section(mocdoc.HeadingRelationships, func() {
			b.WriteString(a.Relationships + "\n")
		})
	}
	if a.Progress != "" {
		section(mocdoc.HeadingProgress, func() {
			b.WriteString(a.Progress + "\n")
		})
	}
	if len(a.KnowledgeGaps) > 0 {
		section(mocdoc.HeadingGaps, func() {
			for _, gap := range a.KnowledgeGaps {
				b.WriteString("- " + gap + "\n")
			}
		})
	}
	if len(a.CrossDomain) > 0 {
		section(mocdoc.HeadingCrossDomain, func() {
			for _, c := range a.CrossDomain {
				b.WriteString("- " + c + "\n")
			}
		})
	}
	if len(a.Insights) > 0 {
		section(mocdoc.HeadingInsights, func() {
			for _, insight := range a.Insights {
				b.WriteString("- " + insight + "\n")
			}
		})
	}

	return strings.TrimSuffix(b.String(), "\n")
}
