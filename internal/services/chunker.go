package services

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 150
)

type TextChunker interface {
	ChunkText(text string, maxChunkSize int, overlap int) []string
}

type textChunker struct{}

func NewTextChunker() TextChunker {
	return &textChunker{}
}

var sectionHeadings = regexp.MustCompile(`(?i)^(summary|profile|objective|experience|work experience|professional experience|employment|employment history|education|skills|technical skills|core skills|projects|certifications|awards|publications|languages|interests|references|volunteer|volunteering)\s*:?$`)

// isHeading reports whether a line starts a new résumé section.
func isHeading(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || utf8.RuneCountInString(line) > 40 {
		return false
	}
	if sectionHeadings.MatchString(line) {
		return true
	}

	letters := 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			letters++
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return letters >= 3
}

// splitSections groups lines into blocks that each start at a heading, further
// split on blank lines.
func splitSections(text string) []string {
	var blocks []string
	var current []string

	flush := func() {
		block := strings.TrimSpace(strings.Join(current, "\n"))
		if block != "" {
			blocks = append(blocks, block)
		}
		current = current[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.TrimSpace(line) == "":
			flush()
		case isHeading(line):
			flush()
			current = append(current, strings.TrimSpace(line))
		default:
			current = append(current, strings.TrimSpace(line))
		}
	}
	flush()

	return mergeHeadings(blocks)
}

// mergeHeadings attaches a block consisting only of a heading to the block after it.
func mergeHeadings(blocks []string) []string {
	var out []string
	for i := 0; i < len(blocks); i++ {
		if isHeading(blocks[i]) && i+1 < len(blocks) {
			out = append(out, blocks[i]+"\n"+blocks[i+1])
			i++
			continue
		}
		out = append(out, blocks[i])
	}
	return out
}

// ChunkText implements TextChunker. Sections are packed into chunks of at most
// maxChunkSize runes; oversized sections are split by sentence, and each new
// chunk starts with the last overlap runes of the previous one.
func (tc *textChunker) ChunkText(text string, maxChunkSize int, overlap int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChunkSize {
		overlap = maxChunkSize / 4
	}

	var chunks []string
	var current strings.Builder

	emit := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, current.String())
		current.Reset()
		if overlap > 0 {
			current.WriteString(lastRunes(chunks[len(chunks)-1], overlap))
		}
	}

	fits := func(piece, sep string) bool {
		return utf8.RuneCountInString(current.String())+utf8.RuneCountInString(piece)+len(sep) <= maxChunkSize
	}

	add := func(piece, sep string) {
		if current.Len() > 0 && !fits(piece, sep) {
			emit()
			// the overlap alone may leave no room for this piece
			if !fits(piece, sep) {
				current.Reset()
			}
		}
		if current.Len() > 0 {
			current.WriteString(sep)
		}
		current.WriteString(piece)
	}

	for _, section := range splitSections(text) {
		if utf8.RuneCountInString(section) <= maxChunkSize {
			add(section, "\n\n")
			continue
		}
		for _, sentence := range splitIntoSentences(section) {
			for _, piece := range hardSplit(sentence, maxChunkSize-overlap-1) {
				add(piece, " ")
			}
		}
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

var sentenceEnd = regexp.MustCompile(`([.!?])\s+|\n`)

func splitIntoSentences(text string) []string {
	marked := sentenceEnd.ReplaceAllString(text, "$1\x00")

	var result []string
	for _, s := range strings.Split(marked, "\x00") {
		if s = strings.TrimSpace(s); s != "" {
			result = append(result, s)
		}
	}
	return result
}

// hardSplit cuts text that has no sentence breaks into pieces of at most size runes.
func hardSplit(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var pieces []string
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}

func lastRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= n {
		return text
	}

	return string(runes[len(runes)-n:])
}
