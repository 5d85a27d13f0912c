package di

import (
	"fmt"
	"reflect"
)

// Resolve resolves tok through r and asserts the result to T.
func Resolve[T any](r Resolver, tok Token) (T, error) {
	var zero T
	v, err := r.Get(tok)
	if err != nil {
		return zero, err
	}
	return assertAs[T](tok, v)
}

// ResolveType resolves the bare-type token TypeOf[T]().
func ResolveType[T any](r Resolver) (T, error) {
	return Resolve[T](r, TypeOf[T]())
}

// ResolveKey resolves a marker key to the type it was declared with.
func ResolveKey[T any](r Resolver, key *Key[T]) (T, error) {
	return Resolve[T](r, key)
}

// ResolveOptional is Optional plus a type assertion. A miss returns
// (zero, false, nil).
func ResolveOptional[T any](r Resolver, tok Token) (T, bool, error) {
	var zero T
	v, ok, err := r.Optional(tok)
	if err != nil || !ok {
		return zero, false, err
	}
	typed, err := assertAs[T](tok, v)
	if err != nil {
		return zero, false, err
	}
	return typed, true, nil
}

// MustResolve resolves or panics. Use only while bootstrapping.
func MustResolve[T any](r Resolver, tok Token) T {
	v, err := Resolve[T](r, tok)
	if err != nil {
		panic(fmt.Sprintf("di: resolve %s: %v", tok, err))
	}
	return v
}

func assertAs[T any](tok Token, v any) (T, error) {
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, &TypeMismatchError{
			Token:   tok,
			Want:    reflect.TypeFor[T]().String(),
			GotType: reflect.TypeOf(v).String(),
		}
	}
	return typed, nil
}
