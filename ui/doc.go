// Package ui bridges di scopes into a templ render tree.
//
// The ambient scope travels down the tree in context.Context, the same way
// templ threads request values to children:
//
//	root := ui.NewRoot(
//	    ui.Provide([]di.Provider{di.Class(NewLogger)},
//	        ui.Provide([]di.Provider{di.Class(NewCounterService)},
//	            ui.Consumer(ui.Request{"counter": di.TypeOf[*CounterService]()},
//	                func(in ui.Injected) templ.Component {
//	                    return CounterView(ui.MustGet[*CounterService](in, "counter"))
//	                }),
//	        ),
//	    ),
//	)
//	err := root.Render(ctx)
//
// A ProviderNode creates its child scope on first render and reuses it until
// it is unmounted. A ConsumerNode subscribes to the scopes owning what it
// injected and asks the Root to render again when their state changes.
package ui
