package arxiv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArxivID(t *testing.T) {
	id, err := ParseArxivID("https://arxiv.org/abs/2301.12345")
	require.NoError(t, err)
	assert.Equal(t, "2301.12345", id)

	id, err = ParseArxivID("https://arxiv.org/pdf/2301.12345.pdf")
	require.NoError(t, err)
	assert.Equal(t, "2301.12345", id)

	id, err = ParseArxivID("https://arxiv.org/abs/cond-mat.9901234")
	require.NoError(t, err)
	assert.Equal(t, "cond-mat.9901234", id)

	_, err = ParseArxivID("https://example.org/paper")
	assert.Error(t, err)
}

func TestMapEntry(t *testing.T) {
	e := &entry{
		Title:     " Attention Is All You Need\n",
		Summary:   " We propose the Transformer. ",
		Published: "2017-06-12T17:57:34Z",
		Authors:   []author{{Name: "Ashish Vaswani"}, {Name: " "}},
		Categories: []category{
			{Term: "cs.CL"},
			{Term: "cs.LG"},
		},
	}

	meta := mapEntry(e)
	assert.Equal(t, "Attention Is All You Need", meta.Title)
	assert.Equal(t, "We propose the Transformer.", meta.Abstract)
	require.Len(t, meta.Authors, 1)
	assert.Equal(t, "Ashish Vaswani", meta.Authors[0].Name)
	assert.Equal(t, []string{"cs.CL", "cs.LG"}, meta.Keywords)
	assert.Equal(t, 2017, meta.PublicationYear)
	require.NotNil(t, meta.PublicationDate)
}
