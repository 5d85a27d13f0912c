// Package scopedi provides hierarchical, scoped dependency injection for Go
// render trees.
//
// The repository is organised as:
//
//   - di: tokens, providers, scopes, resolution, disposal and observable state
//   - ui: the bridge carrying scopes through a templ render tree in
//     context.Context, with provider, consumer and async nodes and a Root
//     that re-renders on state changes
//   - examples/app: a demo application (counter and heroes modules that each
//     rebind the application Logger)
//   - cmd/readi: a CLI rendering the demo
//
// Wiring stays explicit: providers are declared next to the part of the tree
// that needs them, and every lookup walks the scope chain from the nearest
// scope up to the root.
//
// See the di and ui package docs for end-to-end usage.
package scopedi
