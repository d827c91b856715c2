package uartapi

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/txn2/uartdbg/pkg/uartapi/handlers"
	"github.com/txn2/uartdbg/pkg/uartapi/middleware"
)

// setupRouter creates the router:
//   - /metrics   - Prometheus metrics
//   - /api/...   - REST API
func (m *Manager) setupRouter() *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.NoCache())
	r.Use(middleware.ErrorHandler())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		health := handlers.NewHealthHandler(m.version, m.startTime)
		api.GET("/health", health.Health)
		api.GET("/info", health.Info)

		v1 := api.Group("/v1")
		{
			link := handlers.NewLinkHandler(m.deps.Link, m.deps.Events, m.deps.Panels, m.deps.Ports, m.cfg)
			v1.GET("/status", link.Status)
			v1.GET("/ports", link.Ports)
			v1.POST("/connect", link.Connect)
			v1.POST("/disconnect", link.Disconnect)

			data := handlers.NewDataHandler(m.deps.Link, m.deps.Sender)
			v1.GET("/rx", data.Rx)
			v1.DELETE("/rx", data.ClearRx)
			v1.POST("/tx", data.Tx)

			if m.deps.Panels != nil {
				panels := handlers.NewPanelsHandler(m.deps.Panels)
				v1.GET("/panels", panels.List)
				v1.GET("/panels/:id", panels.Get)
			}

			if m.deps.Scripts != nil {
				scripts := handlers.NewScriptsHandler(m.deps.Scripts)
				v1.POST("/scripts", scripts.Run)
			}

			logs := handlers.NewLogsHandler(m.deps.Logs)
			v1.GET("/logs", logs.Recent)
		}
	}

	return r
}
