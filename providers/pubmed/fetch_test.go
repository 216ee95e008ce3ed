package pubmed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePMID(t *testing.T) {
	pmid, err := ParsePMID("https://pubmed.ncbi.nlm.nih.gov/31452104/")
	require.NoError(t, err)
	assert.Equal(t, "31452104", pmid)

	_, err = ParsePMID("https://example.org/31452104")
	assert.Error(t, err)
}

func TestParsePubDate(t *testing.T) {
	d := parsePubDate("2023 Mar 15")
	require.NotNil(t, d)
	assert.Equal(t, 2023, d.Year())

	d = parsePubDate("2023 Mar")
	require.NotNil(t, d)
	assert.Equal(t, 2023, d.Year())

	d = parsePubDate("2023")
	require.NotNil(t, d)
	assert.Equal(t, 2023, d.Year())

	assert.Nil(t, parsePubDate(""))
	assert.Nil(t, parsePubDate("Winter 2023"))
}
