// Package module wires the reports service into the API using modkit
package module

import (
	"net/http"
	"time"

	modkit "storeuptime/internal/modkit"
	"storeuptime/internal/modkit/httpkit"
	"storeuptime/internal/core/clock"
	str "storeuptime/internal/platform/strings"

	reportshttp "storeuptime/internal/services/reports/http"
	reportsrepo "storeuptime/internal/services/reports/repo"
	reportssvc "storeuptime/internal/services/reports/service"
	"storeuptime/internal/services/reports/snapshot"
)

// Module implements the reports module
type Module struct {
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc reportssvc.Service
}

// New constructs the reports module. The process clock and report tuning
// knobs (chunk size, cache TTL) are read from CORE_REPORT_* per
// SPEC_FULL.md §2.2.
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("reports"), modkit.WithPrefix("/reports")}, opts...)...)

	reportCfg := deps.Cfg.Prefix("CORE_REPORT_")
	c := clock.New(reportCfg.MayString("NOW_OVERRIDE", ""))
	cacheTTL := reportCfg.MayDuration("CACHE_TTL", time.Hour)
	chunkSize := reportCfg.MayInt("CHUNK_SIZE", reportssvc.DefaultChunkSize)

	loader := snapshot.NewLoader(deps.CH)
	repoBinder := reportsrepo.NewPG()

	// The API module always dispatches in-process (nil Queue, 0 workers):
	// queue-backed chunked dispatch is storeuptime-worker's job, wired
	// separately in cmd/storeuptime-worker since it needs its own poll loop.
	svc := reportssvc.New(deps.PG, repoBinder, loader, c, cacheTTL, chunkSize, nil, 0)

	m := &Module{
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = adaptReportsPort{svc: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		reportshttp.Register(r, m.svc)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Middlewares returns the module middlewares
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }
