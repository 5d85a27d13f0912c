// Package di provides a small hierarchical dependency injector.
//
// A Scope resolves Tokens into lazily constructed singletons. Scopes form a
// chain: a lookup checks the scope's own bindings first and then walks up to
// its parent, so a child scope can extend or shadow what an ancestor binds.
//
// Bindings are declared with Providers:
//
//   - Class[T](ctor): the type itself is the token ("bare type" binding)
//   - Binding{Provide: tok, UseClass: ctor}: construct ctor when tok is asked for
//   - Binding{Provide: tok, UseValue: v}: supply a literal value
//   - Binding{Provide: tok, UseExisting: other}: alias another token
//
// Services that keep observable state embed *State[T]. When a scope constructs
// such a service it subscribes to it, and every state change is re-published
// through Scope.Notify to the scope's subscribers. The ui package builds its
// re-render loop on top of that.
//
// Errors are typed (ConfigurationError, UnresolvedTokenError,
// CyclicDependencyError, DisposedScopeError, ConstructError) so callers can
// assert them with errors.As. A failed resolution caches nothing.
//
// Import
//
//	"github.com/sghaida/scopedi/di"
package di
