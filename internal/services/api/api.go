// Package api provides the HTTP API for the application
package api

import (
	"net/http"

	"storeuptime/internal/platform/config"
	"storeuptime/internal/platform/logger"
	phttp "storeuptime/internal/platform/net/http"
	"storeuptime/internal/platform/store"

	"storeuptime/internal/modkit"
	"storeuptime/internal/modkit/httpkit"
	"storeuptime/internal/modkit/module"
	"storeuptime/internal/modkit/swaggerkit"

	reportsmod "storeuptime/internal/services/reports/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	// shared deps for modules
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
		CH:  opt.Store.CH,
	}

	mods := []module.Module{
		reportsmod.New(deps),
	}

	// root-level health check, mirroring the original project's bare
	// health_check view rather than the versioned /v1/meta/health probe
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		phttp.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		// Swagger + profiler
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			// mount module routes under its Prefix()
			m.MountRoutes(api)
		}
	})

	// TODO: Remove/create middleware or endpoint for this.
	// if mux, ok := r.Mux().(*chi.Mux); ok {
	// 	_ = chi.Walk(mux, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
	// 		fmt.Println(method, route)
	// 		return nil
	// 	})
	// }
}
