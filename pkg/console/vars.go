package console

import (
	"io"
	"strconv"
	"time"
)

// Var is a property backed by a Go variable.
type Var[T any] struct {
	name   string
	ptr    *T
	parse  func(string) (T, error)
	format func(T) string
}

// NewVar creates a property reading and writing *ptr through parse and format.
func NewVar[T any](name string, ptr *T, parse func(string) (T, error), format func(T) string) *Var[T] {
	return &Var[T]{name: name, ptr: ptr, parse: parse, format: format}
}

func (v *Var[T]) Name() string { return v.name }

func (v *Var[T]) Get() string { return v.format(*v.ptr) }

func (v *Var[T]) Set(value string) error {
	x, err := v.parse(value)
	if err != nil {
		return err
	}
	*v.ptr = x
	return nil
}

func String(name string, ptr *string) *Var[string] {
	return NewVar(name, ptr, func(s string) (string, error) { return s, nil }, func(s string) string { return s })
}

func Int(name string, ptr *int) *Var[int] {
	return NewVar(name, ptr, strconv.Atoi, strconv.Itoa)
}

func Bool(name string, ptr *bool) *Var[bool] {
	return NewVar(name, ptr, strconv.ParseBool, strconv.FormatBool)
}

func Float(name string, ptr *float64) *Var[float64] {
	return NewVar(name, ptr,
		func(s string) (float64, error) { return strconv.ParseFloat(s, 64) },
		func(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) })
}

func Duration(name string, ptr *time.Duration) *Var[time.Duration] {
	return NewVar(name, ptr, time.ParseDuration, time.Duration.String)
}

type readOnly struct {
	name string
	get  func() string
}

// ReadOnly is a computed property; setting it fails with ErrReadOnly.
func ReadOnly(name string, get func() string) Prop {
	return readOnly{name: name, get: get}
}

func (r readOnly) Name() string { return r.name }
func (r readOnly) Get() string { return r.get() }
func (r readOnly) Set(string) error { return ErrReadOnly }

type funcAction struct {
	name string
	fn   func(args string, w io.Writer)
}

// Func wraps fn as an action.
func Func(name string, fn func(args string, w io.Writer)) Action {
	return funcAction{name: name, fn: fn}
}

func (a funcAction) Name() string { return a.name }
func (a funcAction) Invoke(args string, w io.Writer) { a.fn(args, w) }

type group struct {
	name     string
	children Tree
}

// Group creates a list node.
func Group(name string, children ...Node) List {
	return group{name: name, children: children}
}

func (g group) Name() string { return g.name }
func (g group) Visit(f func(Node)) { g.children.Visit(f) }
