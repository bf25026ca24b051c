package modules

import (
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/application"
)

func Load(app application.Application, externalModules ...application.Module) error {
	return application.LoadModules(app, externalModules...)
}
