package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanExtractedTextHyphenation(t *testing.T) {
	cleaned := CleanExtractedText("the experi- ment showed signifi- cant results")
	assert.Equal(t, "the experiment showed significant results", cleaned)
}

func TestCleanExtractedTextWhitespace(t *testing.T) {
	cleaned := CleanExtractedText("first    line\t\there\n\n\n\n\nsecond paragraph")
	assert.Equal(t, "first line here\n\nsecond paragraph", cleaned)
}

func TestCleanExtractedTextDropsPageArtifacts(t *testing.T) {
	input := "A substantial line of content here\n42\nVII\nvol 3\nAnother substantial line of content"
	cleaned := CleanExtractedText(input)
	assert.NotContains(t, cleaned, "42")
	assert.NotContains(t, cleaned, "VII")
	assert.NotContains(t, cleaned, "vol 3")
	assert.Contains(t, cleaned, "A substantial line of content here")
	assert.Contains(t, cleaned, "Another substantial line of content")
}

func TestCleanExtractedTextPunctuationSpacing(t *testing.T) {
	cleaned := CleanExtractedText("results were significant ; however , not conclusive .")
	assert.Equal(t, "results were significant; however, not conclusive.", cleaned)
}

func TestCleanExtractedTextEmpty(t *testing.T) {
	assert.Equal(t, "", CleanExtractedText(""))
}

func TestExtractPaperInfoTitle(t *testing.T) {
	text := "Short\nDeep Learning Approaches for Citation Network Analysis\nJane Doe and John Smith\nUniversity of Somewhere\n"
	info := ExtractPaperInfo(text)
	assert.Equal(t, "Deep Learning Approaches for Citation Network Analysis", info.Title)
}

func TestExtractPaperInfoAuthors(t *testing.T) {
	text := "A Reasonably Long Paper Title Goes Here\nJane Doe and John Smith\n"
	info := ExtractPaperInfo(text)
	require.Len(t, info.Authors, 2)
	assert.Equal(t, "Jane Doe", info.Authors[0].Name)
	assert.Equal(t, "John Smith", info.Authors[1].Name)
}

func TestExtractPaperInfoAbstract(t *testing.T) {
	text := "A Reasonably Long Paper Title Goes Here\n" +
		"Abstract\n" +
		"We study citation networks.\n" +
		"Our results are promising.\n" +
		"Introduction\n" +
		"This should not be part of the abstract.\n"
	info := ExtractPaperInfo(text)
	assert.Equal(t, "We study citation networks. Our results are promising.", info.Abstract)
}

func TestExtractPaperInfoEmpty(t *testing.T) {
	info := ExtractPaperInfo("")
	assert.Empty(t, info.Title)
	assert.Empty(t, info.Authors)
	assert.Empty(t, info.Abstract)
}

func TestParseAuthorLineStripsAffiliations(t *testing.T) {
	authors := parseAuthorLine("Jane Doe (MIT), John Smith [Stanford] and Alice Wong <alice@example.org>")
	assert.Equal(t, []string{"Jane Doe", "John Smith", "Alice Wong"}, authors)
}

func TestLooksLikeSectionHeader(t *testing.T) {
	assert.True(t, looksLikeSectionHeader("Introduction"))
	assert.True(t, looksLikeSectionHeader("RESULTS"))
	assert.True(t, looksLikeSectionHeader("1. Methods"))
	assert.True(t, looksLikeSectionHeader("keywords: networks"))
	assert.False(t, looksLikeSectionHeader("We introduce a new method"))
}

func TestIsValidDOI(t *testing.T) {
	assert.True(t, isValidDOI("10.1234/abcd.5678"))
	assert.False(t, isValidDOI("10.1/x"))
	assert.False(t, isValidDOI("11.1234/abcd"))
	assert.False(t, isValidDOI("10.1234567"))
}
