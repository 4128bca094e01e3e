package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/tagledger-backend/internal/http/handlers"
	httpMW "github.com/yungbote/tagledger-backend/internal/http/middleware"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
	"github.com/yungbote/tagledger-backend/internal/services"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	TracingEnabled bool
	AllowedOrigins []string

	Services Services
	Health   *httpH.HealthHandler
}

// Services is everything the routes call into.
type Services struct {
	Tags     services.TagService
	Schemas  services.SchemaService
	Datasets services.DatasetService
	Analysis services.AnalysisService
	MLOps    services.MLOpsService
	Jobs     services.JobService
	Audit    services.AuditService
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	health := cfg.Health
	if health == nil {
		health = httpH.NewHealthHandler(nil)
	}
	r.GET("/healthcheck", health.HealthCheck)

	s := cfg.Services
	api := r.Group("/")

	if s.Tags != nil {
		httpH.NewResourceHandler(s.Tags.Resource()).Mount(api, "tags", httpH.AllOps)
		tags := httpH.NewTagHandler(s.Tags)
		api.GET("/tags/:id/entities/", tags.Entities)
		api.GET("/tags/:id/default-schema/", tags.DefaultSchema)
		api.GET("/tags/by-name/:name/", tags.ByName)
	}

	if s.Schemas != nil {
		httpH.NewResourceHandler(s.Schemas.Schemas()).Mount(api, "schemas", httpH.AllOps)
		httpH.NewResourceHandler(s.Schemas.Fields()).Mount(api, "fields", httpH.AllOps)
	}

	if s.Datasets != nil {
		httpH.NewResourceHandler(s.Datasets.Datasets()).Mount(api, "datasets", httpH.AllOps)
		httpH.NewResourceHandler(s.Datasets.Files()).Mount(api, "dataset-files", httpH.AllOps)
		httpH.NewResourceHandler(s.Datasets.Profiles()).Mount(api, "dataset-profiles", httpH.ReadOnly|httpH.OpDelete)
		datasets := httpH.NewDatasetHandler(cfg.Log, s.Datasets)
		api.POST("/datasets/:id/upload/", datasets.Upload)
		api.POST("/datasets/:id/validate/", datasets.Validate)
		api.POST("/datasets/:id/profile/", datasets.Profile)
	}

	if s.Analysis != nil {
		httpH.NewResourceHandler(s.Analysis.Templates()).Mount(api, "analysis-templates", httpH.AllOps)
		httpH.NewResourceHandler(s.Analysis.Runs()).Mount(api, "analysis-runs", httpH.AllOps)
		api.POST("/analysis-runs/:id/execute/", httpH.NewAnalysisHandler(s.Analysis).Execute)
	}

	if s.MLOps != nil {
		httpH.NewResourceHandler(s.MLOps.Models()).Mount(api, "models", httpH.AllOps)
		httpH.NewResourceHandler(s.MLOps.Versions()).Mount(api, "model-versions", httpH.AllOps)
		httpH.NewResourceHandler(s.MLOps.TrainingRuns()).Mount(api, "training-runs", httpH.ReadOnly|httpH.OpCreate)
		ml := httpH.NewMLOpsHandler(s.MLOps)
		api.POST("/model-versions/:id/train/", ml.Train)
		api.POST("/model-versions/:id/deploy/", ml.Deploy)
		api.POST("/predict/", ml.Predict)
	}

	if s.Jobs != nil {
		jobs := httpH.NewJobHandler(s.Jobs)
		api.GET("/jobs/pending/", jobs.Pending)
		httpH.NewResourceHandler(s.Jobs.Resource()).Mount(api, "jobs", httpH.AllOps)
		api.POST("/jobs/:id/run/", jobs.RunJob)
		api.POST("/jobs/:id/cancel/", jobs.CancelJob)
	}

	if s.Audit != nil {
		audit := httpH.NewAuditHandler(s.Audit)
		api.GET("/audit-logs/", audit.List)
		api.GET("/audit-logs/:id/", audit.Get)
	}

	return r
}
