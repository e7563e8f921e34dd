package mcpserver

// NoteFormatContract describes the canonical document formats that LLM
// consumers should understand when filing notes into the hierarchy.
const NoteFormatContract = `# Othala Document Format Contract

The vault holds two document kinds: **nodes** (MOC documents that form the
hierarchy) and **leaf notes** (the filed content). The hierarchy engine owns
node structure; LLM consumers only supply leaf content and a taxonomy.

## Taxonomy

Every filed note carries a taxonomy path of 2-4 levels:
Domain (level 1) -> Area (level 2) -> Topic (level 3, optional) -> Concept
(level 4, optional). Labels are normalized deterministically: whitespace
trimmed and collapsed, ` + "`&`" + ` becomes ` + "`and`" + `, punctuation outside
letters/digits/hyphen/underscore is stripped, and plural forms collapse
("Sciences" files under "Science"). Titles similar to an existing sibling
node reuse that node instead of creating a duplicate.

## Leaf note format (engine-rendered)

` + "```" + `markdown
---
title: Quantum Superposition           # REQUIRED
hierarchy:
  level1: Physics
  level2: Quantum Mechanics
learning_context:
  prerequisites:
    - Linear Algebra
  complexity_level: intermediate       # beginner | intermediate | advanced
  estimated_reading_time: 5 min
source: https://example.com/article    # OPTIONAL
created: 2026-01-15T10:00:00Z
tags:
  - quantum
---

Body text in standard Markdown.
` + "```" + `

The engine renders this frontmatter from the file_note arguments; supply the
body as plain Markdown without frontmatter.

## Node format (engine-owned)

` + "```" + `markdown
---
type: moc
title: Quantum Mechanics
domain: Physics
level: 2
created: 2026-01-15T10:00:00Z
updated: 2026-01-15T10:00:00Z
tags:
  - moc
  - moc/area
note_count: 3
---

# Quantum Mechanics

> [!info] Area MOC

## Notes
## Prerequisites
## Learning Paths
## Core Concepts
## Parent Topic
## Subtopics
` + "```" + `

## Rules

1. **Never write node documents directly.** Use file_note or ensure_hierarchy;
   the engine creates and links nodes.
2. **The managed zone is off limits.** Frontmatter and the generated
   intelligence headings (Overview, Key Themes, Conceptual Relationships,
   Learning Progress, Knowledge Gaps, Cross-Domain Connections, Key Insights)
   are rewritten by the engine. Everything a user adds outside those regions
   is preserved byte for byte.
3. **Wikilinks** use double brackets with the filename stem:
   ` + "`" + `[[Quantum Superposition]]` + "`" + ` (no .md extension).
4. **Titles** must avoid characters illegal in filenames
   (` + "`" + `\ / : * ? " < > | # ^ [ ]` + "`" + ` are stripped).
5. **Encoding** is UTF-8; paths use forward slashes and end with ` + "`" + `.md` + "`" + `.
6. **note_count and updated never decrease.** Re-filing the same note is a
   no-op for both.
`
