package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/praxis/internal/analytics"
	analyticsdomain "github.com/smallbiznis/praxis/internal/analytics/domain"
	"github.com/smallbiznis/praxis/internal/assistant"
	assistantdomain "github.com/smallbiznis/praxis/internal/assistant/domain"
	"github.com/smallbiznis/praxis/internal/audit"
	auditdomain "github.com/smallbiznis/praxis/internal/audit/domain"
	"github.com/smallbiznis/praxis/internal/client"
	clientdomain "github.com/smallbiznis/praxis/internal/client/domain"
	"github.com/smallbiznis/praxis/internal/config"
	"github.com/smallbiznis/praxis/internal/engagement"
	engagementdomain "github.com/smallbiznis/praxis/internal/engagement/domain"
	"github.com/smallbiznis/praxis/internal/invoice"
	invoicedomain "github.com/smallbiznis/praxis/internal/invoice/domain"
	"github.com/smallbiznis/praxis/internal/observability"
	obslogger "github.com/smallbiznis/praxis/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/praxis/internal/observability/metrics"
	obstracing "github.com/smallbiznis/praxis/internal/observability/tracing"
	"github.com/smallbiznis/praxis/internal/project"
	projectdomain "github.com/smallbiznis/praxis/internal/project/domain"
	"github.com/smallbiznis/praxis/internal/ratelimit"
	"github.com/smallbiznis/praxis/internal/timesheet"
	timesheetdomain "github.com/smallbiznis/praxis/internal/timesheet/domain"
	"github.com/smallbiznis/praxis/internal/wip"
	wipdomain "github.com/smallbiznis/praxis/internal/wip/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	audit.Module,
	client.Module,
	project.Module,
	timesheet.Module,
	wip.Module,
	invoice.Module,
	engagement.Module,
	analytics.Module,
	ratelimit.Module,
	assistant.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	clientSvc     clientdomain.Service
	projectSvc    projectdomain.Service
	timesheetSvc  timesheetdomain.Service
	wipSvc        wipdomain.Service
	invoiceSvc    invoicedomain.Service
	engagementSvc engagementdomain.Service
	assistantSvc  assistantdomain.Service
	analyticsSvc  analyticsdomain.Service
	auditSvc      auditdomain.Recorder
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	ClientSvc     clientdomain.Service
	ProjectSvc    projectdomain.Service
	TimesheetSvc  timesheetdomain.Service
	WIPSvc        wipdomain.Service
	InvoiceSvc    invoicedomain.Service
	EngagementSvc engagementdomain.Service
	AssistantSvc  assistantdomain.Service
	AnalyticsSvc  analyticsdomain.Service
	AuditSvc      auditdomain.Recorder
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		clientSvc:     p.ClientSvc,
		projectSvc:    p.ProjectSvc,
		timesheetSvc:  p.TimesheetSvc,
		wipSvc:        p.WIPSvc,
		invoiceSvc:    p.InvoiceSvc,
		engagementSvc: p.EngagementSvc,
		assistantSvc:  p.AssistantSvc,
		analyticsSvc:  p.AnalyticsSvc,
		auditSvc:      p.AuditSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Clients --------
	api.GET("/clients", s.ListClients)
	api.POST("/clients", s.CreateClient)
	api.GET("/clients/:id", s.GetClientByID)
	api.PATCH("/clients/:id", s.UpdateClient)

	// -------- Projects --------
	api.GET("/projects", s.ListProjects)
	api.POST("/projects", s.CreateProject)
	api.GET("/projects/:id", s.GetProjectByID)
	api.PATCH("/projects/:id", s.UpdateProject)

	// -------- Tasks --------
	api.GET("/tasks", s.ListTasks)
	api.POST("/tasks", s.CreateTask)
	api.PATCH("/tasks/:id", s.UpdateTask)

	// -------- Time entries --------
	api.GET("/time-entries", s.ListTimeEntries)
	api.POST("/time-entries", s.CreateTimeEntry)
	api.PATCH("/time-entries/:id", s.UpdateTimeEntry)
	api.DELETE("/time-entries/:id", s.DeleteTimeEntry)

	// -------- WIP --------
	api.GET("/wip", s.GetWIP)
	api.POST("/wip/adjust", s.AdjustWIP)

	// -------- Invoices --------
	api.GET("/invoices", s.ListInvoices)
	api.POST("/invoices", s.SaveInvoice)
	api.POST("/invoices/reconcile", s.ReconcileInvoice)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.PUT("/invoices/:id", s.UpdateInvoice)
	api.POST("/invoices/:id/approve", s.ApproveInvoice)
	api.POST("/invoices/:id/send", s.SendInvoice)
	api.POST("/invoices/:id/pay", s.MarkInvoicePaid)

	// -------- Engagements --------
	api.GET("/engagements", s.ListEngagements)
	api.POST("/engagements", s.CreateEngagement)
	api.GET("/engagements/:id", s.GetEngagementByID)
	api.GET("/engagements/:id/pdf", s.RenderEngagementPDF)

	// -------- Assistant --------
	api.POST("/assistant/chat", s.AssistantChat)

	// -------- Analytics --------
	api.GET("/analytics/wip", s.AnalyticsWIP)
	api.GET("/analytics/realization", s.AnalyticsRealization)
	api.GET("/analytics/aging", s.AnalyticsAging)

	// -------- Audit --------
	api.GET("/audit-logs", s.ListAuditLogs)
}
