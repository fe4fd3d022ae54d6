package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCardinality(t *testing.T) {
	tests := []struct {
		c     Cardinality
		str   string
		valid bool
	}{
		{Unlimited, "unlimited", true},
		{1, "1", true},
		{3, "3", true},
		{0, "0", false},
		{-2, "-2", false},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			assert.Equal(t, tt.str, tt.c.String())
			assert.Equal(t, tt.valid, tt.c.Valid())
		})
	}
}

func TestDefinition_StorageDefinition(t *testing.T) {
	d := NewBaseField("string")
	d.Name = "title"
	d.TargetEntityType = "article"
	d.Cardinality = Unlimited
	d.Translatable = true
	d.Provider = "content"
	d.Label = "Title"

	s := d.StorageDefinition()
	assert.Equal(t, &StorageDefinition{
		Name:             "title",
		Type:             "string",
		TargetEntityType: "article",
		Cardinality:      Unlimited,
		Translatable:     true,
		Provider:         "content",
	}, s)
}

func TestDefinition_Kinds(t *testing.T) {
	assert.True(t, NewBaseField("string").IsBaseField())
	assert.True(t, (&Definition{}).IsBaseField())
	assert.False(t, NewBundleField("string").IsBaseField())
	assert.False(t, (&Definition{Kind: KindBaseFieldOverride}).IsBaseField())
}

func TestDefinition_HasConstraint(t *testing.T) {
	d := NewBaseField("string")
	d.Constraints = []Constraint{{Name: "NotNull"}}
	assert.True(t, d.HasConstraint("NotNull"))
	assert.False(t, d.HasConstraint("Length"))
}

func TestOverrideID(t *testing.T) {
	assert.Equal(t, "article.news.title", OverrideID("article", "news", "title"))
}

func TestDefinition_CloneNil(t *testing.T) {
	var d *Definition
	assert.Nil(t, d.Clone())
}
