// Package preview renders a newsletter issue to HTML for review.
//
// Rendering is a pure function of the issue's current content plus an
// optional personalization profile lookup: the same issue snapshot and
// contact id always produce the same output, and nothing is mutated,
// not issue state and not view counters.
package preview

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/ignite/newsletter-engine/internal/domain"
	"github.com/ignite/newsletter-engine/internal/service/issue"
	"github.com/osteele/liquid"
)

// ProfileResolver looks up a contact's personalization profile.
// Resolution is an external collaborator; implementations should return
// *domain.NotFoundError for unknown contacts.
type ProfileResolver interface {
	Resolve(ctx context.Context, contactID uuid.UUID) (*domain.ContactProfile, error)
}

// Result is the rendered preview payload.
type Result struct {
	HTMLContent           string            `json:"html_content"`
	SubjectLine           string            `json:"subject_line"`
	PreviewText           string            `json:"preview_text"`
	PersonalizationTokens map[string]string `json:"personalization_tokens"`
}

// Renderer renders issues with Liquid templates.
type Renderer struct {
	issues   issue.Repository
	profiles ProfileResolver // optional; nil renders with fallback tokens
	engine   *liquid.Engine
}

// NewRenderer creates a preview renderer reading from the given repository.
func NewRenderer(issues issue.Repository) *Renderer {
	r := &Renderer{issues: issues, engine: liquid.NewEngine()}

	// Missing personalization values render as their fallback instead of
	// failing the preview, matching production send behavior.
	r.engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		if s := fmt.Sprintf("%v", value); s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})
	return r
}

// SetProfileResolver enables contact personalization lookups.
func (r *Renderer) SetProfileResolver(p ProfileResolver) { r.profiles = p }

// defaultLayout is the issue preview template. Blocks arrive sorted by
// position; position gaps are a UI concern and do not affect ordering.
const defaultLayout = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{ subject }}</title></head>
<body>
<p class="preview-text">{{ preview_text }}</p>
<h1>{{ subject }}</h1>
<p>Hello {{ first_name | default: "there" }},</p>
{% for block in blocks %}<section class="block block-{{ block.type }}">
{% if block.title %}<h2>{{ block.title }}</h2>{% endif %}
{% if block.subtitle %}<h3>{{ block.subtitle }}</h3>{% endif %}
{% if block.content %}<p>{{ block.content }}</p>{% endif %}
{% if block.cta_url %}<a class="cta" href="{{ block.cta_url }}">{{ block.cta_label | default: "Read more" }}</a>{% endif %}
</section>
{% endfor %}</body>
</html>`

// Render produces the preview for an issue, personalized for contactID when
// given. Fails with *domain.NotFoundError if the issue does not exist.
func (r *Renderer) Render(ctx context.Context, issueID uuid.UUID, contactID *uuid.UUID) (*Result, error) {
	n, err := r.issues.Get(ctx, issueID)
	if err != nil {
		return nil, err
	}

	tokens := map[string]string{
		"first_name": "",
		"last_name":  "",
		"company":    "",
		"industry":   "",
	}
	if contactID != nil && r.profiles != nil {
		profile, err := r.profiles.Resolve(ctx, *contactID)
		if err != nil {
			return nil, err
		}
		tokens["first_name"] = profile.FirstName
		tokens["last_name"] = profile.LastName
		tokens["company"] = profile.Company
		tokens["industry"] = profile.Industry
	}

	blocks := append([]domain.NewsletterBlock(nil), n.Blocks...)
	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Position < blocks[j].Position })

	blockBindings := make([]map[string]interface{}, 0, len(blocks))
	for i := range blocks {
		b := &blocks[i]
		blockBindings = append(blockBindings, map[string]interface{}{
			"type":      string(b.BlockType),
			"title":     strOrNil(b.Title),
			"subtitle":  strOrNil(b.Subtitle),
			"content":   strOrNil(b.Content),
			"cta_label": strOrNil(b.CTALabel),
			"cta_url":   strOrNil(b.CTAURL),
		})
	}

	bindings := map[string]interface{}{
		"subject":      n.Subject(),
		"preview_text": n.PreviewText,
		"blocks":       blockBindings,
	}
	for k, v := range tokens {
		bindings[k] = v
	}

	html, err := r.engine.ParseAndRenderString(defaultLayout, bindings)
	if err != nil {
		return nil, fmt.Errorf("render issue %s: %w", issueID, err)
	}

	return &Result{
		HTMLContent:           html,
		SubjectLine:           n.Subject(),
		PreviewText:           n.PreviewText,
		PersonalizationTokens: tokens,
	}, nil
}

func strOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
