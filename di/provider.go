package di

import "reflect"

// Constructor builds an instance, resolving its own dependencies through r.
//
// r is only valid for nested lookups while the constructor runs; a service
// that keeps it for later use gets a regular, locking lookup instead.
type Constructor func(r Resolver) (any, error)

// Provider is a declaration telling a Scope how to satisfy a Token.
//
// It is a closed union of two forms: Class (the type is its own token) and
// Binding (an explicit {provide, useClass|useValue|useExisting} record).
type Provider interface {
	compile() (Token, recipe, string)
}

type recipeKind int

const (
	kindClass recipeKind = iota
	kindValue
	kindAlias
)

type recipe struct {
	kind  recipeKind
	ctor  Constructor
	value any
	alias Token

	// impl names the implementation for Describe.
	impl string
}

type classProvider struct {
	tok  Token
	ctor Constructor
}

func (p classProvider) compile() (Token, recipe, string) {
	if p.ctor == nil {
		return p.tok, recipe{}, "nil constructor"
	}
	return p.tok, recipe{kind: kindClass, ctor: p.ctor, impl: p.tok.String()}, ""
}

// Class declares T as a constructible type bound under TypeOf[T]().
func Class[T any](ctor func(Resolver) (T, error)) Provider {
	p := classProvider{tok: TypeOf[T]()}
	if ctor != nil {
		p.ctor = func(r Resolver) (any, error) { return ctor(r) }
	}
	return p
}

// Binding is the record form of a provider declaration.
//
// Provide is the lookup key. Exactly one of UseClass, UseValue or
// UseExisting must be set. A nil UseValue counts as unset and a typed nil
// one is rejected, so nil cannot be bound as a value.
type Binding struct {
	Provide     Token
	UseClass    Constructor
	UseValue    any
	UseExisting Token

	impl string
}

func (b Binding) compile() (Token, recipe, string) {
	if b.Provide == nil {
		return nil, recipe{}, "missing provide token"
	}

	set := 0
	if b.UseClass != nil {
		set++
	}
	if b.UseValue != nil {
		set++
	}
	if b.UseExisting != nil {
		set++
	}
	switch {
	case set == 0:
		return b.Provide, recipe{}, "one of useClass, useValue or useExisting is required"
	case set > 1:
		return b.Provide, recipe{}, "useClass, useValue and useExisting are mutually exclusive"
	}

	switch {
	case b.UseClass != nil:
		impl := b.impl
		if impl == "" {
			impl = funcName(b.UseClass)
		}
		return b.Provide, recipe{kind: kindClass, ctor: b.UseClass, impl: impl}, ""
	case b.UseValue != nil:
		if isNil(b.UseValue) {
			return b.Provide, recipe{}, "useValue is a nil " + reflect.TypeOf(b.UseValue).String()
		}
		return b.Provide, recipe{kind: kindValue, value: b.UseValue}, ""
	default:
		if b.UseExisting == b.Provide {
			return b.Provide, recipe{}, "useExisting points at itself"
		}
		return b.Provide, recipe{kind: kindAlias, alias: b.UseExisting, impl: b.UseExisting.String()}, ""
	}
}

// Use binds tok to a typed constructor (useClass).
//
//	di.Use(di.TypeOf[Logger](), NewEnhancedLogger)
func Use[T any](tok Token, ctor func(Resolver) (T, error)) Binding {
	b := Binding{Provide: tok, impl: TypeOf[T]().String()}
	if ctor != nil {
		b.UseClass = func(r Resolver) (any, error) { return ctor(r) }
	}
	return b
}

// Value binds tok to a literal value (useValue).
func Value(tok Token, v any) Binding {
	return Binding{Provide: tok, UseValue: v}
}

// Alias binds tok to whatever existing resolves to (useExisting).
func Alias(tok, existing Token) Binding {
	return Binding{Provide: tok, UseExisting: existing}
}
