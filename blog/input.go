package blog

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Field limits for a post, in characters.
const (
	MaxTitleLen   = 200
	MaxSlugLen    = 200
	MaxExcerptLen = 600
	MaxContentLen = 120000
	MaxURLLen     = 2048
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// rawInput mirrors the authoring form. Field order is the order rules are
// reported in; tag order is the order rules are checked within a field.
// Image URLs end up in img src, so only absolute http(s) is accepted.
type rawInput struct {
	Title          string `validate:"required,max=200"`
	Slug           string `validate:"required,max=200,slug"`
	Excerpt        string `validate:"required,max=600"`
	Content        string `validate:"required,max=120000"`
	CoverImage     string `validate:"omitempty,http_url,max=2048"`
	PostCoverImage string `validate:"omitempty,http_url,max=2048"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// messages maps field and failed rule to the text shown to the author.
var messages = map[string]map[string]string{
	"Title": {
		"required": "Title is required.",
		"max":      "Title must be 200 characters or fewer.",
	},
	"Slug": {
		"required": "Slug is required.",
		"max":      "Slug must be 200 characters or fewer.",
		"slug":     "Slug must use lowercase letters, numbers, and hyphens only.",
	},
	"Excerpt": {
		"required": "Excerpt is required.",
		"max":      "Excerpt must be 600 characters or fewer.",
	},
	"Content": {
		"required": "Content is required.",
		"max":      "Content is too long.",
	},
	"CoverImage": {
		"http_url": "Card image must be a valid URL.",
		"max":      "Card image URL is too long.",
	},
	"PostCoverImage": {
		"http_url": "Post cover image must be a valid URL.",
		"max":      "Post cover image URL is too long.",
	},
}

// formFields maps struct fields to their form names.
var formFields = map[string]string{
	"Title":          "title",
	"Slug":           "slug",
	"Excerpt":        "excerpt",
	"Content":        "content",
	"CoverImage":     "coverImage",
	"PostCoverImage": "postCoverImage",
}

// ParseInput normalizes and validates submitted form values. It returns the
// first failing rule as a *ValidationError and never aggregates.
func ParseInput(form url.Values) (Input, error) {
	return ParseFields(map[string]string{
		"title":          form.Get("title"),
		"slug":           form.Get("slug"),
		"excerpt":        form.Get("excerpt"),
		"content":        form.Get("content"),
		"coverImage":     form.Get("coverImage"),
		"postCoverImage": form.Get("postCoverImage"),
	})
}

// ParseFields is ParseInput over a plain map keyed by form name.
func ParseFields(fields map[string]string) (Input, error) {
	raw := rawInput{
		Title:          strings.TrimSpace(fields["title"]),
		Slug:           strings.TrimSpace(fields["slug"]),
		Excerpt:        strings.TrimSpace(fields["excerpt"]),
		Content:        strings.TrimSpace(fields["content"]),
		CoverImage:     strings.TrimSpace(fields["coverImage"]),
		PostCoverImage: strings.TrimSpace(fields["postCoverImage"]),
	}
	if err := validate.Struct(raw); err != nil {
		return Input{}, firstError(err)
	}
	return Input{
		Title:          raw.Title,
		Slug:           raw.Slug,
		Excerpt:        raw.Excerpt,
		Content:        raw.Content,
		CoverImage:     optional(raw.CoverImage),
		PostCoverImage: optional(raw.PostCoverImage),
	}, nil
}

func firstError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: "Invalid form input."}
	}
	fe := verrs[0]
	msg, ok := messages[fe.StructField()][fe.Tag()]
	if !ok {
		msg = "Invalid form input."
	}
	return &ValidationError{Field: formFields[fe.StructField()], Message: msg}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
