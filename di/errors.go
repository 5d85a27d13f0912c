package di

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrNilInstance is returned (wrapped in ConstructError) when a constructor
	// reports success but hands back a nil value.
	ErrNilInstance = errors.New("di: constructor returned nil instance")

	// ErrConstructorPanic is returned (wrapped in ConstructError) when a
	// constructor panics. The panic value is part of the message.
	ErrConstructorPanic = errors.New("di: panic during construction")
)

// ConfigurationError is returned when a provider declaration is malformed.
type ConfigurationError struct {
	// Index is the position of the declaration in the provider list.
	Index int

	// Token is the declared token, nil if the declaration had none.
	Token Token

	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	// Example: di: invalid provider #1 (LoggerConfig): both useClass and useValue set
	name := "<nil>"
	if e.Token != nil {
		name = e.Token.String()
	}
	return "di: invalid provider #" + strconv.Itoa(e.Index) + " (" + name + "): " + e.Reason
}

// UnresolvedTokenError is returned when a token is bound nowhere in the scope chain.
type UnresolvedTokenError struct {
	Token Token

	// Path is the resolution path that led to the lookup, outermost first.
	// It is empty for a top-level request.
	Path []Token
}

// Error implements the error interface.
func (e *UnresolvedTokenError) Error() string {
	// Example: di: no provider for Logger (CounterService -> Logger)
	msg := "di: no provider for " + e.Token.String()
	if len(e.Path) > 0 {
		path := append(append([]Token(nil), e.Path...), e.Token)
		msg += " (" + joinPath(path) + ")"
	}
	return msg
}

// CyclicDependencyError is returned when a token is requested again while it
// is still being constructed in the same scope.
type CyclicDependencyError struct {
	// Path starts and ends with the same token.
	Path []Token
}

// Error implements the error interface.
func (e *CyclicDependencyError) Error() string {
	// Example: di: cyclic dependency A -> B -> A
	return "di: cyclic dependency " + joinPath(e.Path)
}

// DisposedScopeError is returned when a disposed scope is asked to resolve.
type DisposedScopeError struct {
	ScopeID string
	Label   string
}

// Error implements the error interface.
func (e *DisposedScopeError) Error() string {
	// Example: di: scope "counter" (0b6c...) is disposed
	return "di: scope " + strconv.Quote(e.Label) + " (" + e.ScopeID + ") is disposed"
}

// ConstructError wraps a failure raised while constructing Token.
type ConstructError struct {
	Token Token
	Err   error
}

// Error implements the error interface.
func (e *ConstructError) Error() string {
	return "di: construct " + e.Token.String() + ": " + e.Err.Error()
}

// Unwrap returns the underlying failure.
func (e *ConstructError) Unwrap() error { return e.Err }

// TypeMismatchError is returned by the generic helpers when the resolved value
// is not of the requested type.
type TypeMismatchError struct {
	Token   Token
	Want    string
	GotType string
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	// Example: di: Logger resolved to *app.CounterService, want app.Logger
	return "di: " + e.Token.String() + " resolved to " + e.GotType + ", want " + e.Want
}

func joinPath(path []Token) string {
	parts := make([]string, len(path))
	for i, t := range path {
		parts[i] = t.String()
	}
	return strings.Join(parts, " -> ")
}
