package fieldmanager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldLabels(t *testing.T) {
	ctx := context.Background()

	t.Run("tie goes to the smaller label", func(t *testing.T) {
		f := newFixture(t)

		label, all, err := f.manager().FieldLabels(ctx, "article", "title")
		require.NoError(t, err)
		assert.Equal(t, "Headline", label)
		assert.Equal(t, []string{"Headline", "Title"}, all)
	})

	t.Run("most used label wins", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.types.RegisterBundle("article", "page"))

		label, all, err := f.manager().FieldLabels(ctx, "article", "title")
		require.NoError(t, err)
		assert.Equal(t, "Title", label)
		assert.Equal(t, []string{"Headline", "Title"}, all)
	})

	t.Run("field on every bundle", func(t *testing.T) {
		f := newFixture(t)

		label, all, err := f.manager().FieldLabels(ctx, "article", "uuid")
		require.NoError(t, err)
		assert.Equal(t, "UUID", label)
		assert.Equal(t, []string{"UUID"}, all)
	})

	t.Run("missing field", func(t *testing.T) {
		f := newFixture(t)

		label, all, err := f.manager().FieldLabels(ctx, "article", "field_missing")
		require.NoError(t, err)
		assert.Equal(t, "field_missing", label)
		assert.NotNil(t, all)
		assert.Empty(t, all)
	})

	t.Run("not fieldable", func(t *testing.T) {
		f := newFixture(t)

		_, _, err := f.manager().FieldLabels(ctx, "menu", "title")
		assert.ErrorIs(t, err, ErrNotFieldable)
	})
}
