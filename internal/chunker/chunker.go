// Package chunker splits raw text into overlapping segments for embedding.
//
// Four strategies are supported:
//   - paragraph: split on blank-line boundaries (default for documents)
//   - sentence: split on sentence boundaries (used for conversation messages)
//   - semantic: topic-boundary heuristic based on vocabulary drift
//   - hierarchical: markdown headers define sections, paragraphs subdivide them
//
// All sizes are measured in runes, not bytes, so multibyte text chunks
// correctly. Degenerate input (empty or whitespace-only) yields no pieces;
// callers treat that as an ingestion failure, not an error.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Strategy selects the splitting algorithm.
type Strategy string

// Supported chunking strategies.
const (
	StrategyParagraph    Strategy = "paragraph"
	StrategySentence     Strategy = "sentence"
	StrategySemantic     Strategy = "semantic"
	StrategyHierarchical Strategy = "hierarchical"
)

// Options configures a Split call. Zero values fall back to
// strategy-dependent defaults.
type Options struct {
	Strategy     Strategy
	MaxChunkSize int // character budget per chunk, in runes
	Overlap      int // runes repeated between consecutive chunks
}

// Piece is one chunk of the source text. Index is the zero-based position
// within the document; Section carries the enclosing header for the
// hierarchical strategy.
type Piece struct {
	Text    string
	Index   int
	Section string
}

// Strategy-dependent defaults. Sentence chunks are deliberately small:
// conversation messages are short and retrieval works on finer granularity.
var defaults = map[Strategy]Options{
	StrategyParagraph:    {MaxChunkSize: 1000, Overlap: 100},
	StrategySentence:     {MaxChunkSize: 400, Overlap: 40},
	StrategySemantic:     {MaxChunkSize: 1000, Overlap: 80},
	StrategyHierarchical: {MaxChunkSize: 1500, Overlap: 100},
}

var blankLine = regexp.MustCompile(`\n[ \t]*\n+`)

// Split splits text into pieces under the configured strategy.
// Returns nil for input that yields no usable chunks.
func Split(text string, opts Options) []Piece {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if opts.Strategy == "" {
		opts.Strategy = StrategyParagraph
	}
	def, ok := defaults[opts.Strategy]
	if !ok {
		opts.Strategy = StrategyParagraph
		def = defaults[StrategyParagraph]
	}
	if opts.MaxChunkSize <= 0 {
		opts.MaxChunkSize = def.MaxChunkSize
	}
	if opts.Overlap < 0 {
		opts.Overlap = def.Overlap
	}
	if opts.Overlap >= opts.MaxChunkSize {
		opts.Overlap = opts.MaxChunkSize / 4
	}

	var pieces []Piece
	switch opts.Strategy {
	case StrategySentence:
		pieces = packToPieces(splitSentences(text), " ", opts, "")
	case StrategySemantic:
		pieces = semanticSplit(text, opts)
	case StrategyHierarchical:
		pieces = hierarchicalSplit(text, opts)
	default:
		pieces = packToPieces(splitParagraphs(text), "\n\n", opts, "")
	}

	for i := range pieces {
		pieces[i].Index = i
	}
	return pieces
}

// splitParagraphs splits on blank-line boundaries, dropping empty segments.
func splitParagraphs(text string) []string {
	parts := blankLine.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitSentences splits on sentence terminators and newlines.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			flush()
		}
	}
	flush()
	return sentences
}

// packToPieces merges segments into chunks of at most opts.MaxChunkSize
// runes, carrying opts.Overlap runes of the previous chunk into the next.
// Oversized segments are pre-split so every chunk honors the budget.
func packToPieces(segments []string, sep string, opts Options, section string) []Piece {
	segments = expandOversized(segments, opts.MaxChunkSize-opts.Overlap-utf8.RuneCountInString(sep))

	var pieces []Piece
	var current strings.Builder
	currentLen := 0
	sepLen := utf8.RuneCountInString(sep)

	flush := func() {
		if current.Len() == 0 {
			return
		}
		text := current.String()
		pieces = append(pieces, Piece{Text: text, Section: section})
		current.Reset()
		currentLen = 0
		if tail := overlapTail(text, opts.Overlap); tail != "" {
			current.WriteString(tail)
			currentLen = utf8.RuneCountInString(tail)
		}
	}

	for _, seg := range segments {
		segLen := utf8.RuneCountInString(seg)
		extra := segLen
		if currentLen > 0 {
			extra += sepLen
		}
		if currentLen+extra > opts.MaxChunkSize && current.Len() > 0 {
			flush()
		}
		if currentLen > 0 {
			current.WriteString(sep)
			currentLen += sepLen
		}
		current.WriteString(seg)
		currentLen += segLen
	}

	if current.Len() > 0 {
		text := current.String()
		// Drop a trailing chunk that is nothing but carried-over overlap.
		if len(pieces) == 0 || !isOverlapOnly(text, pieces[len(pieces)-1].Text, opts.Overlap) {
			pieces = append(pieces, Piece{Text: text, Section: section})
		}
	}
	return pieces
}

// isOverlapOnly reports whether text is exactly the overlap tail of prev.
func isOverlapOnly(text, prev string, overlap int) bool {
	return text == overlapTail(prev, overlap)
}

// expandOversized splits any segment longer than limit into sentence, then
// rune-boundary sub-segments so packing can always satisfy the chunk budget.
func expandOversized(segments []string, limit int) []string {
	if limit < 1 {
		limit = 1
	}
	var out []string
	for _, seg := range segments {
		if utf8.RuneCountInString(seg) <= limit {
			out = append(out, seg)
			continue
		}
		for _, sentence := range splitSentences(seg) {
			if utf8.RuneCountInString(sentence) <= limit {
				out = append(out, sentence)
				continue
			}
			out = append(out, splitByRunes(sentence, limit)...)
		}
	}
	return out
}

// overlapTail returns the last n runes of s.
func overlapTail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if n >= len(runes) {
		return s
	}
	return string(runes[len(runes)-n:])
}

// splitByRunes splits text into segments of at most n runes.
func splitByRunes(text string, n int) []string {
	runes := []rune(text)
	var segments []string
	for i := 0; i < len(runes); i += n {
		end := min(i+n, len(runes))
		segments = append(segments, string(runes[i:end]))
	}
	return segments
}

// semanticSplit groups paragraphs into topic runs using vocabulary overlap,
// then packs each run independently. A paragraph that shares almost no
// vocabulary with the running topic starts a new group.
func semanticSplit(text string, opts Options) []Piece {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	const boundaryThreshold = 0.12

	var groups [][]string
	var current []string
	vocab := map[string]struct{}{}

	for _, p := range paragraphs {
		words := tokenize(p)
		if len(current) > 0 && jaccard(vocab, words) < boundaryThreshold {
			groups = append(groups, current)
			current = nil
			vocab = map[string]struct{}{}
		}
		current = append(current, p)
		for w := range words {
			vocab[w] = struct{}{}
		}
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}

	var pieces []Piece
	for _, group := range groups {
		pieces = append(pieces, packToPieces(group, "\n\n", opts, "")...)
	}
	return pieces
}

var header = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

// hierarchicalSplit treats markdown headers as section boundaries and packs
// each section's paragraphs separately, tagging pieces with the section title.
func hierarchicalSplit(text string, opts Options) []Piece {
	lines := strings.Split(text, "\n")

	type section struct {
		title string
		body  []string
	}
	sections := []section{{}}

	for _, line := range lines {
		if m := header.FindStringSubmatch(line); m != nil {
			sections = append(sections, section{title: strings.TrimSpace(m[2])})
			continue
		}
		last := &sections[len(sections)-1]
		last.body = append(last.body, line)
	}

	var pieces []Piece
	for _, sec := range sections {
		body := strings.TrimSpace(strings.Join(sec.body, "\n"))
		if body == "" {
			continue
		}
		pieces = append(pieces, packToPieces(splitParagraphs(body), "\n\n", opts, sec.title)...)
	}
	return pieces
}

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// tokenize lowercases and splits text into a word set.
func tokenize(text string) map[string]struct{} {
	words := map[string]struct{}{}
	for _, w := range nonWord.Split(strings.ToLower(text), -1) {
		if len(w) > 2 {
			words[w] = struct{}{}
		}
	}
	return words
}

// jaccard computes set overlap between an accumulated vocabulary and a
// paragraph's word set, relative to the smaller set.
func jaccard(vocab map[string]struct{}, words map[string]struct{}) float64 {
	if len(vocab) == 0 || len(words) == 0 {
		return 0
	}
	shared := 0
	for w := range words {
		if _, ok := vocab[w]; ok {
			shared++
		}
	}
	smaller := min(len(vocab), len(words))
	return float64(shared) / float64(smaller)
}
