package project

import (
	"github.com/smallbiznis/praxis/internal/project/domain"
	"github.com/smallbiznis/praxis/internal/project/service"
	"github.com/smallbiznis/praxis/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("project.service",
	fx.Provide(repository.ProvideStore[domain.Project]),
	fx.Provide(repository.ProvideStore[domain.Task]),
	fx.Provide(service.New),
)
