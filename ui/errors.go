package ui

import "errors"

// Sentinel errors for mounting and rendering.
var (
	ErrUnmounted   = errors.New("ui: root is unmounted")
	ErrRenderLoop  = errors.New("ui: render kept invalidating itself")
	ErrNotInjected = errors.New("ui: name was not injected")
)
