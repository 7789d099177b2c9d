package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText_PlainText(t *testing.T) {
	t.Parallel()

	got, err := Text([]byte("hello world"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
}

func TestText_EmptyMimeType(t *testing.T) {
	t.Parallel()

	got, err := Text([]byte("raw"), "")
	require.NoError(t, err)
	assert.Equal(t, "raw", got)
}

func TestText_MimeTypeParameters(t *testing.T) {
	t.Parallel()

	got, err := Text([]byte("# heading"), "text/markdown; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "# heading", got)
}

func TestText_HTML(t *testing.T) {
	t.Parallel()

	doc := `<html><head><title>t</title><style>.x{}</style></head>
<body><script>var x = 1;</script><p>Refund policy details.</p><p>Contact support.</p></body></html>`

	got, err := Text([]byte(doc), "text/html")
	require.NoError(t, err)
	assert.Contains(t, got, "Refund policy details.")
	assert.Contains(t, got, "Contact support.")
	assert.NotContains(t, got, "var x = 1")
}

func TestText_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	_, err := Text([]byte{0x25, 0x50, 0x44, 0x46}, "application/pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestText_InvalidUTF8(t *testing.T) {
	t.Parallel()

	_, err := Text([]byte{0xff, 0xfe, 0xfd}, "text/plain")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestText_MalformedMimeType(t *testing.T) {
	t.Parallel()

	_, err := Text([]byte("x"), "not a mime type;;;")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
