package timesheet

import (
	"github.com/smallbiznis/praxis/internal/timesheet/repository"
	"github.com/smallbiznis/praxis/internal/timesheet/service"
	"go.uber.org/fx"
)

var Module = fx.Module("timesheet.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
