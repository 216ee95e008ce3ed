package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"

	"paperbase/models"
	"paperbase/providers"
)

func TestPrepareContent(t *testing.T) {
	tests := []struct {
		name  string
		paper models.Paper
		want  string
	}{
		{
			name: "alle Felder",
			paper: models.Paper{
				Title:    "Deep Learning",
				Abstract: "We study deep networks.",
				FullText: "Introduction...",
			},
			want: "Title: Deep Learning\n\nAbstract: We study deep networks.\n\nFull Text: Introduction...",
		},
		{
			name: "nur Titel und Abstract",
			paper: models.Paper{
				Title:    "Deep Learning",
				Abstract: "We study deep networks.",
			},
			want: "Title: Deep Learning\n\nAbstract: We study deep networks.",
		},
		{
			name:  "nur Titel reicht nicht",
			paper: models.Paper{Title: "Deep Learning"},
			want:  "",
		},
		{
			name:  "leeres Paper",
			paper: models.Paper{},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, prepareContent(&tt.paper))
		})
	}
}

func TestCollectKeywords(t *testing.T) {
	papers := []models.Paper{
		{Keywords: datatypes.JSON([]byte(`["machine learning","nlp"]`))},
		{Keywords: datatypes.JSON([]byte(`["nlp","transformers","attention"]`))},
		{Keywords: nil},
		{Keywords: datatypes.JSON([]byte(`not json`))},
		{Keywords: datatypes.JSON([]byte(`["genomics","proteomics"]`))},
	}

	got := collectKeywords(papers, 5)
	assert.Equal(t, []string{"machine learning", "nlp", "transformers", "attention", "genomics"}, got)
}

func TestCollectKeywordsLimit(t *testing.T) {
	papers := []models.Paper{
		{Keywords: datatypes.JSON([]byte(`["a","b","c","d"]`))},
	}
	assert.Equal(t, []string{"a", "b"}, collectKeywords(papers, 2))
	assert.Empty(t, collectKeywords(nil, 5))
}

func TestBuildPaperDetail(t *testing.T) {
	paper := &models.Paper{
		ID:    7,
		Title: "Attention Is All You Need",
	}

	t.Run("ohne Lesestatus", func(t *testing.T) {
		detail := BuildPaperDetail(paper, nil, 12, 30)

		assert.Equal(t, uint(7), detail.ID)
		assert.Nil(t, detail.ReadingStatus)
		assert.Equal(t, int64(12), detail.CitingCount)
		assert.Equal(t, int64(30), detail.ReferenceCount)
	})

	t.Run("mit Lesestatus", func(t *testing.T) {
		rating := 5
		userPaper := &models.UserPaper{
			Status:          models.ReadingActive,
			ReadingProgress: 40,
			TimeSpent:       3600,
			Rating:          &rating,
			Tags:            datatypes.JSON([]byte(`["nlp"]`)),
			Notes:           "Grundlage für Kapitel 3",
			LastAccessedAt:  time.Now(),
		}

		detail := BuildPaperDetail(paper, userPaper, 0, 0)

		assert.NotNil(t, detail.ReadingStatus)
		assert.Equal(t, models.ReadingActive, *detail.ReadingStatus)
		assert.Equal(t, 40, detail.ReadingProgress)
		assert.Equal(t, 3600, detail.TimeSpent)
		assert.Equal(t, 5, *detail.Rating)
		assert.Equal(t, "Grundlage für Kapitel 3", detail.UserNotes)
	})
}

func TestPaperFromMetadata(t *testing.T) {
	ps := &PaperService{}
	pubDate := time.Date(2023, 4, 12, 0, 0, 0, 0, time.UTC)

	meta := &providers.Metadata{
		Title:           "Scaling Laws Revisited",
		Abstract:        "We revisit scaling laws.",
		DOI:             "10.1000/xyz",
		ArxivID:         "2304.01234",
		PublicationDate: &pubDate,
		PublicationYear: 2023,
		Source:          models.SourceArxiv,
	}
	paper := ps.paperFromMetadata(meta, "https://arxiv.org/abs/2304.01234")

	assert.Equal(t, "Scaling Laws Revisited", paper.Title)
	assert.Equal(t, "10.1000/xyz", *paper.DOI)
	assert.Equal(t, "2304.01234", *paper.ArxivID)
	assert.Nil(t, paper.PMID)
	assert.Equal(t, "https://arxiv.org/abs/2304.01234", paper.URL)
	assert.Equal(t, models.SourceArxiv, paper.Source)
	assert.Equal(t, models.ProcessingPending, paper.ProcessingStatus)
	assert.Equal(t, 2023, paper.PublicationYear)
}

func TestAuthorsJSON(t *testing.T) {
	assert.Equal(t, "[]", string(authorsJSON(nil)))

	got := authorsJSON([]models.Author{{Name: "Ada Lovelace"}})
	assert.JSONEq(t, `[{"name":"Ada Lovelace"}]`, string(got))
}

func TestKeywordsJSON(t *testing.T) {
	assert.Equal(t, "[]", string(keywordsJSON(nil)))
	assert.JSONEq(t, `["nlp","ml"]`, string(keywordsJSON([]string{"nlp", "ml"})))
}
