// Package language resolves the language field metadata is built for
package language

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

// LangParam is the query parameter used to select a language
const LangParam = "lang"

// Provider reports the language of the current request
type Provider interface {
	CurrentLanguageID() string
}

// Fixed is a Provider that always reports the same language
type Fixed string

// CurrentLanguageID implements Provider
func (f Fixed) CurrentLanguageID() string {
	return string(f)
}

// Negotiator matches requested languages against the supported set
type Negotiator struct {
	supported []language.Tag
	matcher   language.Matcher
}

// NewNegotiator creates a negotiator. The default language is always
// supported and is used when nothing better matches.
func NewNegotiator(defaultID string, supported ...string) (*Negotiator, error) {
	def, err := language.Parse(defaultID)
	if err != nil {
		return nil, fmt.Errorf("invalid default language %q: %w", defaultID, err)
	}

	tags := []language.Tag{def}
	for _, id := range supported {
		tag, err := language.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("invalid language %q: %w", id, err)
		}
		if tag == def {
			continue
		}
		tags = append(tags, tag)
	}

	return &Negotiator{
		supported: tags,
		matcher:   language.NewMatcher(tags),
	}, nil
}

// Default returns the default language ID
func (n *Negotiator) Default() string {
	return n.supported[0].String()
}

// Supported returns the supported language IDs, default first
func (n *Negotiator) Supported() []string {
	out := make([]string, len(n.supported))
	for i, tag := range n.supported {
		out[i] = tag.String()
	}
	return out
}

// Match returns the supported language closest to the first acceptable
// requested one. Unparsable values are skipped.
func (n *Negotiator) Match(requested ...string) string {
	var tags []language.Tag
	for _, id := range requested {
		tag, err := language.Parse(strings.TrimSpace(id))
		if err != nil {
			continue
		}
		tags = append(tags, tag)
	}
	return n.match(tags)
}

// MatchAcceptLanguage picks a language from an Accept-Language header value
func (n *Negotiator) MatchAcceptLanguage(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return n.Default()
	}
	return n.match(tags)
}

// ResolveRequest determines the language of a request from the lang query
// parameter, then the Accept-Language header
func (n *Negotiator) ResolveRequest(r *http.Request) string {
	if r == nil {
		return n.Default()
	}
	if v := strings.TrimSpace(r.URL.Query().Get(LangParam)); v != "" {
		return n.Match(v)
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		return n.MatchAcceptLanguage(accept)
	}
	return n.Default()
}

func (n *Negotiator) match(tags []language.Tag) string {
	if len(tags) == 0 {
		return n.Default()
	}
	_, index, confidence := n.matcher.Match(tags...)
	if confidence == language.No {
		return n.Default()
	}
	return n.supported[index].String()
}

type contextKey struct{}

// WithLangcode returns a context carrying the language metadata is built for
func WithLangcode(ctx context.Context, langcode string) context.Context {
	return context.WithValue(ctx, contextKey{}, langcode)
}

// FromContext returns the language carried by ctx
func FromContext(ctx context.Context) (string, bool) {
	langcode, ok := ctx.Value(contextKey{}).(string)
	return langcode, ok && langcode != ""
}
