package engagement

import (
	"github.com/smallbiznis/praxis/internal/engagement/domain"
	"github.com/smallbiznis/praxis/internal/engagement/pdf"
	"github.com/smallbiznis/praxis/internal/engagement/service"
	"github.com/smallbiznis/praxis/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("engagement.service",
	fx.Provide(repository.ProvideStore[domain.Document]),
	fx.Provide(pdf.New),
	fx.Provide(service.New),
)
