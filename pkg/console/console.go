// Package console defines the command tree a host exposes to remote
// operators: properties that can be read and set, actions that can be
// invoked, and lists that group other nodes under a dotted prefix.
//
// The server never defines node kinds itself. It only walks a Visitor and
// resolves paths against it, so any host type implementing these interfaces
// can be exposed.
package console

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrReadOnly is returned by properties that cannot be set.
var ErrReadOnly = errors.New("read-only property")

// Node is any entry in the tree.
type Node interface {
	Name() string
}

// Prop is a named value that can be read and set from text.
type Prop interface {
	Node
	Get() string
	Set(value string) error
}

// Action is a named command. Output is written to w.
type Action interface {
	Node
	Invoke(args string, w io.Writer)
}

// List is a node that groups children. Children are addressed as
// "<list>.<child>".
type List interface {
	Node
	Visitor
}

// Visitor enumerates the nodes at one level of the tree.
type Visitor interface {
	Visit(f func(Node))
}

// Tree is a Visitor over a fixed set of nodes.
type Tree []Node

func (t Tree) Visit(f func(Node)) {
	for _, n := range t {
		f(n)
	}
}

// Walk calls f for every node reachable from v with its full dotted path.
// Lists are reported before their children.
func Walk(v Visitor, f func(path string, n Node)) {
	walk(v, "", f)
}

func walk(v Visitor, prefix string, f func(path string, n Node)) {
	v.Visit(func(n Node) {
		path := prefix + n.Name()
		f(path, n)
		if l, ok := n.(List); ok {
			walk(l, path+".", f)
		}
	})
}

// Find resolves a dotted path.
func Find(v Visitor, path string) (Node, bool) {
	var found Node
	v.Visit(func(n Node) {
		if found != nil {
			return
		}
		name := n.Name()
		if name == path {
			found = n
			return
		}
		if l, ok := n.(List); ok && strings.HasPrefix(path, name+".") {
			if child, ok := Find(l, path[len(name)+1:]); ok {
				found = child
			}
		}
	})
	return found, found != nil
}

// Poke runs one console command against v and writes any textual output to w.
//
// A property with args is set; without args its value is printed. An action
// is invoked with args. A list prints the paths of its children. Unknown paths
// print an error line. An empty path does nothing.
func Poke(v Visitor, path, args string, w io.Writer) {
	if path == "" {
		return
	}
	n, ok := Find(v, path)
	if !ok {
		fmt.Fprintf(w, "unknown command: %s\n", path)
		return
	}
	switch n := n.(type) {
	case Prop:
		if args == "" {
			fmt.Fprintf(w, "%s `%s`\n", path, n.Get())
			return
		}
		if err := n.Set(args); err != nil {
			fmt.Fprintf(w, "%s: %v\n", path, err)
		}
	case Action:
		n.Invoke(args, w)
	case List:
		Walk(n, func(child string, _ Node) {
			fmt.Fprintf(w, "%s.%s\n", path, child)
		})
	default:
		fmt.Fprintf(w, "%s: not invocable\n", path)
	}
}

// SplitLine splits a command line into its path and trimmed arguments.
// Leading whitespace is ignored; args is empty when none were given.
// Whitespace is ASCII space, tab, CR, LF and form feed; vertical tab is
// part of the path.
func SplitLine(line string) (path, args string) {
	line = strings.TrimLeft(line, lineSpace)
	end := strings.IndexAny(line, lineSpace)
	if end < 0 {
		return line, ""
	}
	return line[:end], strings.Trim(line[end:], lineSpace)
}

const lineSpace = " \t\r\n\f"
