package wip

import (
	"github.com/smallbiznis/praxis/internal/wip/service"
	"go.uber.org/fx"
)

var Module = fx.Module("wip.service",
	fx.Provide(service.New),
)
