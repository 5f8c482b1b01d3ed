package blog

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validForm() url.Values {
	return url.Values{
		"title":   {"  Field Notes  "},
		"slug":    {"field-notes"},
		"excerpt": {"A short walk through the archive."},
		"content": {"# Hello\n\nBody text."},
	}
}

func TestParseInputTrimsAndNormalizes(t *testing.T) {
	form := validForm()
	form.Set("coverImage", "  ")
	form.Set("postCoverImage", " https://cdn.example.com/hero.jpg ")

	in, err := ParseInput(form)
	require.NoError(t, err)

	assert.Equal(t, "Field Notes", in.Title)
	assert.Equal(t, "field-notes", in.Slug)
	assert.Nil(t, in.CoverImage, "blank cover image maps to nil")
	require.NotNil(t, in.PostCoverImage)
	assert.Equal(t, "https://cdn.example.com/hero.jpg", *in.PostCoverImage)
}

func TestParseInputRules(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		value   string
		message string
	}{
		{"missing title", "title", "   ", "Title is required."},
		{"long title", "title", strings.Repeat("t", 201), "Title must be 200 characters or fewer."},
		{"missing slug", "slug", "", "Slug is required."},
		{"long slug", "slug", strings.Repeat("s", 201), "Slug must be 200 characters or fewer."},
		{"uppercase slug", "slug", "Field-Notes", "Slug must use lowercase letters, numbers, and hyphens only."},
		{"double hyphen slug", "slug", "field--notes", "Slug must use lowercase letters, numbers, and hyphens only."},
		{"trailing hyphen slug", "slug", "field-", "Slug must use lowercase letters, numbers, and hyphens only."},
		{"missing excerpt", "excerpt", "", "Excerpt is required."},
		{"long excerpt", "excerpt", strings.Repeat("e", 601), "Excerpt must be 600 characters or fewer."},
		{"missing content", "content", "\n\t", "Content is required."},
		{"long content", "content", strings.Repeat("c", 120001), "Content is too long."},
		{"bad cover", "coverImage", "not a url", "Card image must be a valid URL."},
		{"long cover", "coverImage", "https://example.com/" + strings.Repeat("a", 2048), "Card image URL is too long."},
		{"bad hero", "postCoverImage", "/relative/path.jpg", "Post cover image must be a valid URL."},
		{"script cover", "coverImage", "javascript:alert(1)", "Card image must be a valid URL."},
		{"ftp hero", "postCoverImage", "ftp://example.com/hero.jpg", "Post cover image must be a valid URL."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			form.Set(tt.field, tt.value)

			_, err := ParseInput(form)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, tt.message, ve.Message)
		})
	}
}

func TestParseInputFirstErrorWins(t *testing.T) {
	_, err := ParseInput(url.Values{"slug": {"BAD SLUG"}})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "title", ve.Field)
	assert.Equal(t, "Title is required.", ve.Message)
}

func TestParseInputCountsCharactersNotBytes(t *testing.T) {
	form := validForm()
	form.Set("title", strings.Repeat("é", 200))

	_, err := ParseInput(form)
	assert.NoError(t, err)
}
