// Package gridcache adapts a security framework's cache abstraction to a
// data-grid engine.
//
// Components:
//   - Cache[V]: a handle over one named provider.Store. Get/Put/Remove/Clear/
//     Size/Keys/Values with a single error kind (*Error) for every failure.
//   - Directory: resolves caches by name. It either borrows a container or
//     manager supplied by the caller, or lazily builds its own manager from a
//     config resource (classpath:gridcache/failsafe.yaml by default) and then
//     owns it: Destroy stops only what the Directory created.
//   - provider: the engine SPI (Store, Container, Manager) with bigcache,
//     ristretto, redis, valkey and NATS JetStream stores.
//   - codec: value serialization, JSON by default.
//
// Usage:
//
//	dir := gridcache.NewDirectory(gridcache.Options{Logger: zaplog.New(z)})
//	defer dir.Destroy(ctx)
//
//	sessions, err := gridcache.GetCache[Session](ctx, dir, "activeSessions", nil)
//	prev, _, err := sessions.Put(ctx, id, s)
package gridcache
