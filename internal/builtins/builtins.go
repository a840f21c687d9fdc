// Package builtins holds the table of Scarpet built-in functions,
// constants and event callbacks used for hover, completion, diagnostics and
// rename protection.
//
// A default table is embedded in the binary. Alternative tables can be
// loaded from JSON or from the msgpack bundles written by Save.
package builtins

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

//go:embed builtins.json
var embedded []byte

// Param is one formal parameter of a built-in signature.
type Param struct {
	Name string `json:"name" msgpack:"name"`
	Rest bool   `json:"rest,omitempty" msgpack:"rest,omitempty"`
}

// Signature is one accepted call shape.
type Signature struct {
	Params  []Param `json:"params" msgpack:"params"`
	Returns string  `json:"returns,omitempty" msgpack:"returns,omitempty"`
}

// Function documents a built-in function.
type Function struct {
	Plain      string      `json:"plain" msgpack:"plain"`
	Markdown   string      `json:"markdown" msgpack:"markdown"`
	Deprecated string      `json:"deprecated,omitempty" msgpack:"deprecated,omitempty"`
	Signatures []Signature `json:"signatures" msgpack:"signatures"`
}

// Constant documents a built-in constant or implicit variable.
type Constant struct {
	Plain    string `json:"plain" msgpack:"plain"`
	Markdown string `json:"markdown" msgpack:"markdown"`
}

// Callback documents a function the game calls by name, such as
// __on_tick or __config.
type Callback struct {
	Plain      string  `json:"plain" msgpack:"plain"`
	Markdown   string  `json:"markdown" msgpack:"markdown"`
	Deprecated string  `json:"deprecated,omitempty" msgpack:"deprecated,omitempty"`
	Params     []Param `json:"params" msgpack:"params"`
}

// Table is a complete set of built-ins.
type Table struct {
	Functions map[string]Function `json:"functions" msgpack:"functions"`
	Constants map[string]Constant `json:"constants" msgpack:"constants"`
	Callbacks map[string]Callback `json:"callbacks" msgpack:"callbacks"`
	Events    []string            `json:"events" msgpack:"events"`
}

// SymbolKind is what a built-in name denotes.
type SymbolKind uint8

const (
	NotBuiltin SymbolKind = iota
	FunctionSymbol
	ConstantSymbol
	CallbackSymbol
)

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the embedded table. The result is shared and must not be
// modified.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := decodeJSON(embedded)
		if err != nil {
			panic(fmt.Sprintf("builtins: embedded table: %v", err))
		}
		defaultTable = t
	})
	return defaultTable
}

// Load reads a table from path. Files ending in .msgpack or .mpk are
// decoded as msgpack, anything else as JSON.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("builtins: reading %s: %w", path, err)
	}
	var t *Table
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mpk":
		t, err = decodeMsgpack(data)
	default:
		t, err = decodeJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("builtins: decoding %s: %w", path, err)
	}
	return t, nil
}

// Save writes t to path as a msgpack bundle.
func (t *Table) Save(path string) error {
	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(t); err != nil {
		return fmt.Errorf("builtins: encoding: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("builtins: writing %s: %w", path, err)
	}
	return nil
}

func decodeJSON(data []byte) (*Table, error) {
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	t.normalize()
	return &t, nil
}

func decodeMsgpack(data []byte) (*Table, error) {
	var t Table
	if err := msgpack.NewDecoder(bytes.NewReader(data)).Decode(&t); err != nil {
		return nil, err
	}
	t.normalize()
	return &t, nil
}

func (t *Table) normalize() {
	if t.Functions == nil {
		t.Functions = map[string]Function{}
	}
	if t.Constants == nil {
		t.Constants = map[string]Constant{}
	}
	if t.Callbacks == nil {
		t.Callbacks = map[string]Callback{}
	}
}

// Kind reports what name denotes in the table. Functions win over
// constants, which win over callbacks.
func (t *Table) Kind(name string) SymbolKind {
	if _, ok := t.Functions[name]; ok {
		return FunctionSymbol
	}
	if _, ok := t.Constants[name]; ok {
		return ConstantSymbol
	}
	if _, ok := t.Callbacks[name]; ok {
		return CallbackSymbol
	}
	return NotBuiltin
}

// Has reports whether name is a built-in function or constant. Callbacks
// are user-defined and therefore not included.
func (t *Table) Has(name string) bool {
	k := t.Kind(name)
	return k == FunctionSymbol || k == ConstantSymbol
}

// IsCallback reports whether a user function with this name is invoked by
// the game rather than by the script.
func (t *Table) IsCallback(name string) bool {
	if _, ok := t.Callbacks[name]; ok {
		return true
	}
	return name == "__config" || strings.HasPrefix(name, "__on_")
}

// Syntax renders the call shapes of a built-in, one per line, e.g.
// "print(expr)\nprint(player, expr)". Unknown names render as name().
func (t *Table) Syntax(name string) string {
	fn, ok := t.Functions[name]
	if !ok || len(fn.Signatures) == 0 {
		return name + "()"
	}
	lines := make([]string, 0, len(fn.Signatures))
	for _, sig := range fn.Signatures {
		lines = append(lines, FormatCall(name, sig.Params))
	}
	return strings.Join(lines, "\n")
}

// FormatCall renders name(a, b, ...rest).
func FormatCall(name string, params []Param) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			sb.WriteString(", ")
		}
		if p.Rest {
			sb.WriteString("...")
		}
		sb.WriteString(p.Name)
	}
	sb.WriteByte(')')
	return sb.String()
}

// FunctionNames returns the built-in function names, sorted.
func (t *Table) FunctionNames() []string {
	names := make([]string, 0, len(t.Functions))
	for name := range t.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConstantNames returns the built-in constant names, sorted.
func (t *Table) ConstantNames() []string {
	names := make([]string, 0, len(t.Constants))
	for name := range t.Constants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CallbackNames returns the callback names, sorted.
func (t *Table) CallbackNames() []string {
	names := make([]string, 0, len(t.Callbacks))
	for name := range t.Callbacks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Hash returns a stable digest of the table contents. The index stores it
// so a changed table forces a re-index.
func (t *Table) Hash() string {
	// encoding/json sorts map keys, so the encoding is deterministic.
	data, err := json.Marshal(t)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
