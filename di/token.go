package di

import "reflect"

// Token identifies a dependency inside a Scope.
//
// Tokens are used as map keys, so every implementation must be comparable.
// Use TypeOf for "the type itself" tokens and NewKey for explicit markers.
type Token interface {
	String() string
	token()
}

type typeToken struct{ t reflect.Type }

func (k typeToken) String() string { return k.t.String() }

func (typeToken) token() {}

// TypeOf returns the token that stands for T itself.
//
// Interface types work too: TypeOf[Logger]() is the natural token for a
// service that several implementations can satisfy.
func TypeOf[T any]() Token {
	return typeToken{t: reflect.TypeFor[T]()}
}

// Key is an explicit marker token, compared by identity.
//
// Two keys created with the same description are different tokens.
//
//	var LoggerConfigKey = di.NewKey[LoggerConfig]("LoggerConfig")
type Key[T any] struct {
	desc string
}

// NewKey creates a marker token. T documents the type bound under it and is
// used by ResolveKey.
func NewKey[T any](desc string) *Key[T] {
	return &Key[T]{desc: desc}
}

// String returns the key description.
func (k *Key[T]) String() string { return k.desc }

func (*Key[T]) token() {}
