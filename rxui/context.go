package rxui

import (
	"github.com/odvcencio/furry-rx/registry"
	"github.com/odvcencio/furry-rx/runtime"
)

// RegistryContext carries the registry used by the hooks in this package.
// Without a provider, each root lazily builds its own registry whose
// deferred removals run on the root's scheduler.
var RegistryContext = runtime.CreateContextFunc(func(r *runtime.Root) *registry.Registry {
	return registry.Make(registry.WithScheduler(r.Scheduler()))
})

// RegistryProvider renders children against reg instead of the default.
func RegistryProvider(reg *registry.Registry, children ...runtime.Element) runtime.Element {
	return runtime.Provide(RegistryContext, reg, children...)
}

// UseRegistry returns the registry in effect for s.
func UseRegistry(s *runtime.Scope) *registry.Registry {
	return runtime.UseContext(s, RegistryContext)
}
