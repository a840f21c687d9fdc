package analysis

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/jward/scarpetls/internal/syntax"
)

// Rejection sentinels, matched with errors.Is against a *RejectionError.
var (
	ErrBuiltin     = errors.New("built-in symbol")
	ErrInvalidName = errors.New("invalid name")
)

// RejectionKind says why a rename was refused.
type RejectionKind uint8

const (
	RejectBuiltin RejectionKind = iota + 1
	RejectInvalidName
)

func (k RejectionKind) String() string {
	switch k {
	case RejectBuiltin:
		return "built-in"
	case RejectInvalidName:
		return "invalid name"
	}
	return "unknown"
}

// RejectionError is a refused rename. Reason is meant for the user.
type RejectionError struct {
	Kind   RejectionKind
	Reason string
}

func (e *RejectionError) Error() string { return e.Reason }

func (e *RejectionError) Is(target error) bool {
	switch e.Kind {
	case RejectBuiltin:
		return target == ErrBuiltin
	case RejectInvalidName:
		return target == ErrInvalidName
	}
	return false
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reserved names cannot be bound by user code.
var reserved = map[string]bool{
	"true": true, "false": true, "null": true, "pi": true, "euler": true,
	"outer": true, "_": true,
}

// ValidIdentifier reports whether name is usable as a variable or
// function name.
func ValidIdentifier(name string) bool {
	return identPattern.MatchString(name) && !reserved[name]
}

// ValidateRename checks a rename of name to newName. The built-in check
// runs first, so a built-in target is reported as such even when newName
// is also invalid.
func ValidateRename(name, newName string, builtin bool) error {
	if builtin {
		return &RejectionError{Kind: RejectBuiltin, Reason: fmt.Sprintf("cannot rename built-in '%s'", name)}
	}
	if !identPattern.MatchString(newName) {
		return &RejectionError{Kind: RejectInvalidName, Reason: fmt.Sprintf("'%s' is not a valid identifier", newName)}
	}
	if reserved[newName] {
		return &RejectionError{Kind: RejectInvalidName, Reason: fmt.Sprintf("'%s' is a reserved name", newName)}
	}
	if IsGlobalName(name) != IsGlobalName(newName) {
		return &RejectionError{
			Kind:   RejectInvalidName,
			Reason: fmt.Sprintf("'%s' would move '%s' across the %s namespace boundary", newName, name, GlobalPrefix),
		}
	}
	return nil
}

// NameOf returns the identifier a declaration or reference node carries.
func NameOf(n syntax.Node) (string, bool) {
	switch n := n.(type) {
	case *syntax.Variable:
		return n.Name, true
	case *syntax.Param:
		return n.Name, true
	case *syntax.RestParam:
		return n.Name, true
	case *syntax.OuterParam:
		return n.Name, true
	case *syntax.Call:
		return n.Name, true
	case *syntax.FunctionDecl:
		return n.Name, true
	case *syntax.String:
		return n.Value, true
	}
	return "", false
}

// NameRange returns the span to replace when renaming n: the bare name,
// without rest dots, outer(...) or string quotes.
func NameRange(n syntax.Node) syntax.Range {
	switch n := n.(type) {
	case *syntax.RestParam:
		return n.NameRange
	case *syntax.OuterParam:
		return n.NameRange
	case *syntax.Call:
		return n.NameRange
	case *syntax.FunctionDecl:
		return n.NameRange
	case *syntax.String:
		r := n.Loc
		if r.Len() >= 2 {
			r.Start.Offset++
			r.Start.Character++
			r.End.Offset--
			r.End.Character--
		}
		return r
	}
	return n.Range()
}
