package generic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHTMLMetadataCitationTags(t *testing.T) {
	html := `<html><head>
		<title>Some Page &amp; Title</title>
		<meta name="citation_title" content="A Study of Citation Graphs">
		<meta name="citation_author" content="Jane Doe">
		<meta name="citation_author" content="John Smith">
		<meta name="citation_abstract" content="We analyze graphs.">
		<meta name="citation_journal_title" content="Journal of Graphs">
		<meta name="citation_doi" content="10.1234/jog.2023.42">
		<meta name="citation_pdf_url" content="https://example.org/paper.pdf">
		<meta name="citation_publication_date" content="2023/05/01">
	</head></html>`

	meta := ParseHTMLMetadata(html)
	assert.Equal(t, "A Study of Citation Graphs", meta.Title)
	require.Len(t, meta.Authors, 2)
	assert.Equal(t, "Jane Doe", meta.Authors[0].Name)
	assert.Equal(t, "We analyze graphs.", meta.Abstract)
	assert.Equal(t, "Journal of Graphs", meta.Journal)
	assert.Equal(t, "10.1234/jog.2023.42", meta.DOI)
	assert.Equal(t, "https://example.org/paper.pdf", meta.PDFURL)
	assert.Equal(t, 2023, meta.PublicationYear)
}

func TestParseHTMLMetadataTitleFallback(t *testing.T) {
	meta := ParseHTMLMetadata("<html><head><title>Plain Page</title></head></html>")
	assert.Equal(t, "Plain Page", meta.Title)
	assert.Empty(t, meta.Authors)
}

func TestParseHTMLMetadataReversedAttributeOrder(t *testing.T) {
	html := `<meta content="Alice Wong" name="citation_author">`
	meta := ParseHTMLMetadata(html)
	require.Len(t, meta.Authors, 1)
	assert.Equal(t, "Alice Wong", meta.Authors[0].Name)
}

func TestParseHTMLMetadataEmpty(t *testing.T) {
	meta := ParseHTMLMetadata("")
	assert.Empty(t, meta.Title)
}
