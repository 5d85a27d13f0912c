package di

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"runtime"
	"strings"

	"github.com/fatih/color"
)

// Describe renders the declarations of s, in declaration order:
//
//	CounterService
//	{provide: Logger, useClass: *app.EnhancedLogger}
//	{provide: LoggerConfig, useValue: {"Allow":true}}
func Describe(s *Scope) []string {
	out := make([]string, 0, len(s.providers))
	for _, p := range s.providers {
		out = append(out, describe(p))
	}
	return out
}

func describe(p Provider) string {
	tok, r, reason := p.compile()
	if reason != "" {
		return "<invalid: " + reason + ">"
	}
	if _, bare := p.(classProvider); bare {
		return tok.String()
	}

	switch r.kind {
	case kindValue:
		return "{provide: " + tok.String() + ", useValue: " + valueString(r.value) + "}"
	case kindAlias:
		return "{provide: " + tok.String() + ", useExisting: " + r.impl + "}"
	default:
		return "{provide: " + tok.String() + ", useClass: " + r.impl + "}"
	}
}

func valueString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func funcName(fn any) string {
	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return "func"
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

var (
	rootHeader  = color.New(color.FgWhite, color.BgRed, color.Bold)
	childHeader = color.New(color.FgWhite, color.BgGreen, color.Bold)
)

// Fprint writes the scope chain ending at s, root first, with the providers
// registered in each scope. Root scopes are printed red, children green.
func Fprint(w io.Writer, s *Scope) error {
	var chain []*Scope
	for sc := s; sc != nil; sc = sc.parent {
		chain = append(chain, sc)
	}

	for depth := len(chain) - 1; depth >= 0; depth-- {
		sc := chain[depth]
		indent := strings.Repeat("  ", len(chain)-1-depth)

		header := childHeader
		title := "Child Injector"
		if sc.IsRoot() {
			header = rootHeader
			title = "Root Injector"
		}
		if sc.label != "root" && sc.label != "child" {
			title += " (" + sc.label + ")"
		}

		if _, err := fmt.Fprintf(w, "%s%s [%s]\n", indent, header.Sprint(" "+title+" "), sc.Status()); err != nil {
			return err
		}
		for _, line := range Describe(sc) {
			if _, err := fmt.Fprintf(w, "%s  - %s\n", indent, line); err != nil {
				return err
			}
		}
	}
	return nil
}
