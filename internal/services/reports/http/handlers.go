// Package http provides http transport for reports: trigger and poll
package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"

	"storeuptime/internal/modkit/httpkit"
	perrs "storeuptime/internal/platform/errors"
	"storeuptime/internal/services/reports/domain"
	svc "storeuptime/internal/services/reports/service"
)

// Register mounts reports endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	// start a new report run, returns {report_id} immediately
	httpkit.PostJSON[domain.TriggerInput](r, "/", h.trigger)

	// poll a report run's status; returns csv once Complete
	r.Get("/{id}", httpkit.Handle(h.poll))
}

type handlers struct{ svc svc.Service }

// swagger:route POST /reports Reports reportsTrigger
// @Summary Trigger a report run
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body domain.TriggerInput false "Options"
// @Success 200 {object} domain.TriggerOutput "ok"
// @Router /reports [post]
func (h *handlers) trigger(r *stdhttp.Request, in domain.TriggerInput) (any, error) {
	return h.svc.Trigger(r.Context(), in)
}

// swagger:route GET /reports/{id} Reports reportsPoll
// @Summary Poll a report run
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} domain.PollOutput "ok"
// @Router /reports/{id} [get]
func (h *handlers) poll(r *stdhttp.Request) httpkit.Response {
	id := chi.URLParam(r, "id")
	if id == "" {
		return httpkit.Error(perrs.InvalidArgf("missing report id"))
	}
	out, err := h.svc.Poll(r.Context(), id)
	if err != nil {
		return httpkit.Error(err)
	}
	return httpkit.OK(out)
}
