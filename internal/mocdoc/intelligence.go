package mocdoc

import (
	"bytes"
	"strings"
)

// isIntelligenceHeading reports whether a trimmed line is one of the managed
// intelligence headings.
func isIntelligenceHeading(line string) bool {
	line = strings.TrimRight(line, "\r")
	for _, h := range intelligenceHeadings {
		if line == h {
			return true
		}
	}
	return false
}

// intelligenceRange locates the managed intelligence block: from the first
// intelligence heading through the character before the next level-2 heading
// that is not itself an intelligence heading, or the document end.
func (d *Doc) intelligenceRange() (start, end int, ok bool) {
	start = -1
	end = len(d.raw)
	for i := d.bodyStart; i < len(d.raw); {
		lineEnd := bytes.IndexByte(d.raw[i:], '\n')
		var line string
		var next int
		if lineEnd < 0 {
			line = string(d.raw[i:])
			next = len(d.raw)
		} else {
			line = string(d.raw[i : i+lineEnd])
			next = i + lineEnd + 1
		}
		if strings.HasPrefix(line, "## ") {
			switch {
			case isIntelligenceHeading(line) && start < 0:
				start = i
			case !isIntelligenceHeading(line) && start >= 0:
				return start, i, true
			}
		}
		i = next
	}
	if start < 0 {
		return 0, 0, false
	}
	return start, end, true
}

// HasIntelligence reports whether the document carries an intelligence block.
func (d *Doc) HasIntelligence() bool {
	_, _, ok := d.intelligenceRange()
	return ok
}

// ReplaceIntelligence swaps the managed intelligence block for content,
// which must already be rendered (headings included) and end with a newline.
// When no block exists yet, the content is inserted after the node's info
// callout, falling back to after the title heading, then to the document
// end. Bytes outside the replaced range are untouched.
func (d *Doc) ReplaceIntelligence(content string) {
	rendered := []byte(content)
	if len(rendered) > 0 && !bytes.HasSuffix(rendered, []byte("\n")) {
		rendered = append(rendered, '\n')
	}

	pad := func(following []byte) []byte {
		// Keep a blank line between the block and a following heading.
		if bytes.HasPrefix(following, []byte("#")) && !bytes.HasSuffix(rendered, []byte("\n\n")) {
			return append(rendered, '\n')
		}
		return rendered
	}

	if start, end, ok := d.intelligenceRange(); ok {
		var b bytes.Buffer
		b.Write(d.raw[:start])
		b.Write(pad(d.raw[end:]))
		b.Write(d.raw[end:])
		d.raw = b.Bytes()
		return
	}

	at := d.insertionPoint()
	var b bytes.Buffer
	b.Write(d.raw[:at])
	b.WriteString("\n")
	b.Write(pad(d.raw[at:]))
	b.Write(d.raw[at:])
	d.raw = b.Bytes()
}

// insertionPoint finds where a fresh intelligence block belongs: after the
// info callout under the title, after the title heading, or at the end.
func (d *Doc) insertionPoint() int {
	titleEnd := -1
	calloutEnd := -1
	inCallout := false

	for i := d.bodyStart; i < len(d.raw); {
		lineEnd := bytes.IndexByte(d.raw[i:], '\n')
		var line string
		var next int
		if lineEnd < 0 {
			line = string(d.raw[i:])
			next = len(d.raw)
		} else {
			line = string(d.raw[i : i+lineEnd])
			next = i + lineEnd + 1
		}
		trimmed := strings.TrimRight(line, "\r")

		switch {
		case titleEnd < 0 && strings.HasPrefix(trimmed, "# "):
			titleEnd = next
		case titleEnd >= 0 && strings.HasPrefix(trimmed, ">"):
			inCallout = true
			calloutEnd = next
		case inCallout && trimmed == "":
			// blank line inside/after the callout keeps scanning
		case inCallout:
			return calloutEnd
		case titleEnd >= 0 && trimmed != "":
			// First real content after the title with no callout.
			return titleEnd
		}
		i = next
	}
	if calloutEnd >= 0 {
		return calloutEnd
	}
	if titleEnd >= 0 {
		return titleEnd
	}
	return len(d.raw)
}
