package override

import "go.uber.org/fx"

var Module = fx.Module("override",
	fx.Provide(New),
)
