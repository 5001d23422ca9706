package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"docsrag/internal/domain"
)

// DefaultMaxChunkSize is the default chunk size in characters.
const DefaultMaxChunkSize = 1000

// DefaultOverlap is the default overlap between consecutive chunks,
// in characters.
const DefaultOverlap = 200

var headingRegex = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

// MarkdownChunker splits markdown documents into bounded chunks.
// Sizes are measured in characters. Headings open new sections,
// paragraphs are packed greedily, and only a paragraph larger than the
// chunk size is split internally (at sentence, then word boundaries).
// Consecutive chunks share a character overlap taken from the tail of
// the previous chunk at a word boundary.
type MarkdownChunker struct {
	maxSize int
	overlap int
}

// NewMarkdown creates a markdown-aware chunker.
func NewMarkdown(maxSize, overlap int) *MarkdownChunker {
	if maxSize <= 0 {
		maxSize = DefaultMaxChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxSize {
		overlap = maxSize / 5
	}
	return &MarkdownChunker{maxSize: maxSize, overlap: overlap}
}

type section struct {
	heading string
	body    string
}

// Chunk splits the document content into chunks. Empty or
// whitespace-only content produces zero chunks and no error.
func (c *MarkdownChunker) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, nil
	}

	sections := splitSections(doc.Content)

	// Paragraph packing leaves room for the overlap prefix and its
	// joiner so the final chunk never exceeds maxSize.
	limit := c.maxSize
	if c.overlap > 0 {
		limit = c.maxSize - c.overlap - 1
		if limit <= 0 {
			limit = c.maxSize
		}
	}

	var chunks []domain.Chunk
	for _, sec := range sections {
		for _, piece := range packPieces(sec.body, limit) {
			chunks = append(chunks, domain.Chunk{
				URL:     doc.URL,
				Heading: sec.heading,
				Content: piece,
			})
		}
	}

	// Prepend the overlap tail of each chunk to its successor, then
	// assign final indexes.
	if c.overlap > 0 {
		for i := len(chunks) - 1; i > 0; i-- {
			tail := overlapTail(chunks[i-1].Content, c.overlap)
			if tail != "" {
				chunks[i].Content = tail + " " + chunks[i].Content
			}
		}
	}
	for i := range chunks {
		chunks[i].Index = i
	}

	return chunks, nil
}

// splitSections cuts the text at markdown headings. A heading with no
// body is merged into the following section instead of becoming its own
// near-empty chunk.
func splitSections(text string) []section {
	matches := headingRegex.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []section{{body: strings.TrimSpace(text)}}
	}

	var sections []section
	if pre := strings.TrimSpace(text[:matches[0][0]]); pre != "" {
		sections = append(sections, section{body: pre})
	}

	pendingHeadings := ""
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := strings.TrimSpace(text[m[0]:end])
		heading := text[m[4]:m[5]]
		headingLine := strings.TrimSpace(text[m[0]:m[1]])

		if body == headingLine {
			// Heading without body: carry it forward.
			pendingHeadings += body + "\n\n"
			continue
		}
		if pendingHeadings != "" {
			body = pendingHeadings + body
			pendingHeadings = ""
		}
		sections = append(sections, section{heading: heading, body: body})
	}

	if pendingHeadings != "" {
		// Trailing heading with nothing after it.
		if len(sections) > 0 {
			last := &sections[len(sections)-1]
			last.body += "\n\n" + strings.TrimSpace(pendingHeadings)
		} else {
			sections = append(sections, section{body: strings.TrimSpace(pendingHeadings)})
		}
	}

	return sections
}

// packPieces packs paragraphs greedily into pieces of at most limit
// characters. Oversized paragraphs are split at sentence boundaries,
// and oversized sentences at word boundaries.
func packPieces(text string, limit int) []string {
	var pieces []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			pieces = append(pieces, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	appendUnit := func(unit, sep string) {
		if current.Len() > 0 && current.Len()+len(sep)+len(unit) > limit {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(sep)
		}
		current.WriteString(unit)
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) <= limit {
			appendUnit(para, "\n\n")
			continue
		}
		for _, sent := range splitSentences(para) {
			if len(sent) <= limit {
				appendUnit(sent, " ")
				continue
			}
			for _, piece := range splitWords(sent, limit) {
				appendUnit(piece, " ")
			}
		}
	}
	flush()

	return pieces
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) {
			next := text[i+1]
			if next == ' ' || next == '\n' {
				sentences = append(sentences, strings.TrimSpace(current.String()))
				current.Reset()
			}
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

// splitWords cuts text into pieces of at most limit characters at word
// boundaries, splitting single oversized words as a last resort.
func splitWords(text string, limit int) []string {
	words := strings.Fields(text)
	var pieces []string
	var current strings.Builder

	for _, w := range words {
		for len(w) > limit {
			if current.Len() > 0 {
				pieces = append(pieces, current.String())
				current.Reset()
			}
			cut := limit
			for cut > 0 && !utf8.RuneStart(w[cut]) {
				cut--
			}
			pieces = append(pieces, w[:cut])
			w = w[cut:]
		}
		if current.Len() > 0 && current.Len()+1+len(w) > limit {
			pieces = append(pieces, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(w)
	}
	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}

	return pieces
}

// overlapTail returns at most n characters from the end of s, starting
// at a word boundary so the overlap never begins mid-word.
func overlapTail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	tail := s[len(s)-n:]
	if idx := strings.IndexAny(tail, " \n"); idx >= 0 {
		tail = tail[idx+1:]
	} else {
		for len(tail) > 0 && !utf8.RuneStart(tail[0]) {
			tail = tail[1:]
		}
	}
	return strings.TrimSpace(tail)
}
