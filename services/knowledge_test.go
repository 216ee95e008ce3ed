package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"

	"paperbase/models"
)

func TestValidEntryType(t *testing.T) {
	for _, et := range []models.EntryType{
		models.EntrySummary, models.EntryNote, models.EntryHighlight,
		models.EntryInsight, models.EntryQuestion,
	} {
		assert.True(t, validEntryType(et), string(et))
	}
	assert.False(t, validEntryType("bookmark"))
	assert.False(t, validEntryType(""))
}

func TestEntryTags(t *testing.T) {
	assert.Nil(t, entryTags(nil))
	assert.Nil(t, entryTags(datatypes.JSON([]byte(`kein json`))))
	assert.Equal(t, []string{"nlp", "statistik"},
		entryTags(datatypes.JSON([]byte(`["nlp","statistik"]`))))
}

func TestTopTags(t *testing.T) {
	entries := []models.KnowledgeEntry{
		{Tags: datatypes.JSON([]byte(`["nlp","ml"]`))},
		{Tags: datatypes.JSON([]byte(`["nlp","statistik"]`))},
		{Tags: datatypes.JSON([]byte(`["nlp","ml"]`))},
		{Tags: nil},
	}

	got := topTags(entries, 2)
	assert.Equal(t, []TagCount{
		{Tag: "nlp", Count: 3},
		{Tag: "ml", Count: 2},
	}, got)

	// Gleichstand wird alphabetisch aufgelöst
	tied := topTags([]models.KnowledgeEntry{
		{Tags: datatypes.JSON([]byte(`["zebra","apfel"]`))},
	}, 5)
	assert.Equal(t, []TagCount{
		{Tag: "apfel", Count: 1},
		{Tag: "zebra", Count: 1},
	}, tied)
}

func TestCountDistinctTags(t *testing.T) {
	entries := []models.KnowledgeEntry{
		{Tags: datatypes.JSON([]byte(`["nlp","ml"]`))},
		{Tags: datatypes.JSON([]byte(`["nlp"]`))},
	}
	assert.Equal(t, 2, countDistinctTags(entries))
	assert.Equal(t, 0, countDistinctTags(nil))
}
