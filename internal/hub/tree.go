package hub

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"time"

	"github.com/ectows/ectows/pkg/console"
)

// buildTree assembles the command tree operators see.
func (h *Hub) buildTree() console.Tree {
	return console.Tree{
		console.Group("sys",
			console.NewVar("tickrate", &h.tickRate, parseTickRate, strconv.Itoa),
			console.ReadOnly("uptime", func() string {
				return time.Since(h.started).Truncate(time.Second).String()
			}),
			console.String("motd", &h.motd),
			console.Func("gc!", h.runGC),
		),
		console.Group("log",
			console.Func("echo!", func(args string, w io.Writer) {
				h.srv.Log(args)
			}),
		),
		console.Group("settings",
			console.Func("publish!", func(string, io.Writer) {
				h.publishSettings()
			}),
		),
		console.Group("debug",
			console.Func("table!", func(string, io.Writer) {
				h.srv.PublishTable("tree", h.paths())
			}),
			console.Func("stats!", func(string, io.Writer) {
				data, _ := json.Marshal(h.srv.Stats())
				h.srv.Visualize("stats", string(data))
			}),
		),
		console.Func("help!", func(_ string, w io.Writer) {
			for _, p := range h.paths() {
				fmt.Fprintln(w, p)
			}
		}),
	}
}

func parseTickRate(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > 1000 {
		return 0, fmt.Errorf("tick rate must be between 1 and 1000")
	}
	return n, nil
}

func (h *Hub) runGC(_ string, w io.Writer) {
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	runtime.GC()
	runtime.ReadMemStats(&after)
	fmt.Fprintf(w, "gc: heap %d KiB -> %d KiB\n", before.HeapAlloc/1024, after.HeapAlloc/1024)
}

func (h *Hub) paths() []string {
	var paths []string
	console.Walk(h.tree, func(path string, _ console.Node) {
		paths = append(paths, path)
	})
	return paths
}

// Setting describes one property in the settings UI.
type Setting struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

func propKind(p console.Prop) string {
	switch p.(type) {
	case *console.Var[int]:
		return "int"
	case *console.Var[bool]:
		return "bool"
	case *console.Var[float64]:
		return "float"
	case *console.Var[time.Duration]:
		return "duration"
	case *console.Var[string]:
		return "string"
	}
	return "readonly"
}

// settingsDescriptor lists every property with its current value.
func (h *Hub) settingsDescriptor() string {
	settings := []Setting{}
	console.Walk(h.tree, func(path string, n console.Node) {
		if p, ok := n.(console.Prop); ok {
			settings = append(settings, Setting{Path: path, Kind: propKind(p), Value: p.Get()})
		}
	})
	data, err := json.Marshal(settings)
	if err != nil {
		h.logger.Error("encode settings", "error", err)
		return "[]"
	}
	return string(data)
}

func (h *Hub) publishSettings() {
	h.srv.SettingsUI(h.settingsDescriptor())
}
