package analytics

import (
	"github.com/smallbiznis/praxis/internal/analytics/service"
	"go.uber.org/fx"
)

var Module = fx.Module("analytics.service",
	fx.Provide(service.New),
)
