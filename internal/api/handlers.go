package api

import (
	"net/http"
	"time"

	"github.com/ignite/newsletter-engine/internal/delivery"
	"github.com/ignite/newsletter-engine/internal/service/configuration"
	"github.com/ignite/newsletter-engine/internal/service/generation"
	"github.com/ignite/newsletter-engine/internal/service/issue"
	"github.com/ignite/newsletter-engine/internal/service/preview"
	"github.com/ignite/newsletter-engine/internal/service/segment"
)

// Pagination bounds shared by every list endpoint.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Handlers contains all HTTP handlers for the newsletter engine.
type Handlers struct {
	issues    *issue.Service
	generator *generation.Coordinator
	previews  *preview.Renderer
	configs   *configuration.Service
	segments  *segment.Service
	delivery  delivery.Provider // optional metrics source for mark-sent
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	issues *issue.Service,
	generator *generation.Coordinator,
	previews *preview.Renderer,
	configs *configuration.Service,
	segments *segment.Service,
) *Handlers {
	return &Handlers{
		issues:    issues,
		generator: generator,
		previews:  previews,
		configs:   configs,
		segments:  segments,
	}
}

// SetDeliveryProvider sets the delivery metrics source consulted by
// mark-sent when the request body carries no snapshot.
func (h *Handlers) SetDeliveryProvider(p delivery.Provider) {
	h.delivery = p
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
