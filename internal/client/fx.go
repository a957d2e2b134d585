package client

import (
	"github.com/smallbiznis/praxis/internal/client/domain"
	"github.com/smallbiznis/praxis/internal/client/service"
	"github.com/smallbiznis/praxis/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("client.service",
	fx.Provide(repository.ProvideStore[domain.Client]),
	fx.Provide(service.New),
)
