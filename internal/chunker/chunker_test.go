package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_EmptyInput(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Split("", Options{}))
	assert.Nil(t, Split("   \n\t\n  ", Options{}))
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	t.Parallel()

	pieces := Split("A short note.", Options{Strategy: StrategyParagraph})
	require.Len(t, pieces, 1)
	assert.Equal(t, "A short note.", pieces[0].Text)
	assert.Equal(t, 0, pieces[0].Index)
}

func TestSplit_ParagraphRespectsBudgetAndOverlap(t *testing.T) {
	t.Parallel()

	// Three ~195-char paragraphs, ~600 chars total.
	p1 := strings.Repeat("alpha ", 32) + "one"
	p2 := strings.Repeat("bravo ", 32) + "two"
	p3 := strings.Repeat("delta ", 32) + "three"
	text := p1 + "\n\n" + p2 + "\n\n" + p3

	pieces := Split(text, Options{Strategy: StrategyParagraph, MaxChunkSize: 300, Overlap: 50})

	require.GreaterOrEqual(t, len(pieces), 2)
	require.LessOrEqual(t, len(pieces), 3)

	for i, p := range pieces {
		assert.LessOrEqual(t, utf8.RuneCountInString(p.Text), 300, "chunk %d over budget", i)
		assert.Equal(t, i, p.Index)
	}

	// Consecutive chunks share the overlap tail of the previous chunk.
	for i := 1; i < len(pieces); i++ {
		prev := []rune(pieces[i-1].Text)
		tail := string(prev[len(prev)-50:])
		assert.True(t, strings.HasPrefix(pieces[i].Text, tail),
			"chunk %d does not start with the previous chunk's 50-rune tail", i)
	}
}

func TestSplit_ContiguousIndexes(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("Sentence one. Sentence two. Sentence three. ", 40)
	pieces := Split(text, Options{Strategy: StrategySentence, MaxChunkSize: 120, Overlap: 20})

	require.NotEmpty(t, pieces)
	for i, p := range pieces {
		assert.Equal(t, i, p.Index)
		assert.NotEmpty(t, strings.TrimSpace(p.Text))
	}
}

func TestSplit_SentenceStrategy(t *testing.T) {
	t.Parallel()

	pieces := Split("First point. Second point! Third question?", Options{
		Strategy:     StrategySentence,
		MaxChunkSize: 20,
		Overlap:      0,
	})

	require.Len(t, pieces, 3)
	assert.Equal(t, "First point.", pieces[0].Text)
	assert.Equal(t, "Second point!", pieces[1].Text)
	assert.Equal(t, "Third question?", pieces[2].Text)
}

func TestSplit_OversizedSegmentIsSubdivided(t *testing.T) {
	t.Parallel()

	// A single paragraph with no sentence boundaries, larger than the budget.
	text := strings.Repeat("x", 1000)
	pieces := Split(text, Options{Strategy: StrategyParagraph, MaxChunkSize: 200, Overlap: 0})

	require.NotEmpty(t, pieces)
	for _, p := range pieces {
		assert.LessOrEqual(t, utf8.RuneCountInString(p.Text), 200)
	}

	var joined strings.Builder
	for _, p := range pieces {
		joined.WriteString(strings.ReplaceAll(p.Text, "\n\n", ""))
	}
	assert.Equal(t, 1000, strings.Count(joined.String(), "x"))
}

func TestSplit_HierarchicalSections(t *testing.T) {
	t.Parallel()

	text := `# Billing

Refunds are processed within 5 days.

# Shipping

Orders ship within 24 hours.

International delivery takes longer.`

	pieces := Split(text, Options{Strategy: StrategyHierarchical, MaxChunkSize: 200, Overlap: 0})

	require.GreaterOrEqual(t, len(pieces), 2)

	sections := map[string]bool{}
	for _, p := range pieces {
		sections[p.Section] = true
	}
	assert.True(t, sections["Billing"])
	assert.True(t, sections["Shipping"])
}

func TestSplit_SemanticTopicBoundary(t *testing.T) {
	t.Parallel()

	// Two paragraph runs with disjoint vocabulary should not be merged into
	// one chunk even though both fit the budget together.
	text := `Databases store rows and indexes. Query planners optimize database access paths.

Databases replicate rows across database nodes for durability.

Bicycles have wheels and pedals. Cyclists ride bicycles on mountain trails.`

	pieces := Split(text, Options{Strategy: StrategySemantic, MaxChunkSize: 500, Overlap: 0})

	require.GreaterOrEqual(t, len(pieces), 2)
	assert.NotContains(t, pieces[0].Text, "Bicycles")
}

func TestSplit_UnknownStrategyFallsBackToParagraph(t *testing.T) {
	t.Parallel()

	pieces := Split("one\n\ntwo", Options{Strategy: Strategy("bogus")})
	require.Len(t, pieces, 1)
	assert.Equal(t, "one\n\ntwo", pieces[0].Text)
}

func TestSplit_MultibyteRuneSafety(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("資料庫儲存列與索引。", 50)
	pieces := Split(text, Options{Strategy: StrategySentence, MaxChunkSize: 60, Overlap: 10})

	require.NotEmpty(t, pieces)
	for _, p := range pieces {
		assert.LessOrEqual(t, utf8.RuneCountInString(p.Text), 60)
		assert.True(t, utf8.ValidString(p.Text))
	}
}
