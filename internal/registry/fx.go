package registry

import (
	"github.com/smallsites/sitebill/internal/registry/repository"
	"github.com/smallsites/sitebill/internal/registry/service"
	"go.uber.org/fx"
)

var Module = fx.Module("registry",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
