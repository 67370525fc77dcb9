package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"golang.org/x/mod/modfile"
)

// Project is the Go module the CLI runs in.
type Project struct {
	Root string
	Mod  *modfile.File
}

// FindProject walks up from dir to the nearest go.mod and parses it.
func FindProject(dir string) mo.Result[*Project] {
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return mo.TupleToResult(NewProject(dir))
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return mo.Err[*Project](fmt.Errorf("go.mod not found above %s", dir))
		}
		dir = parent
	}
}

// NewProject parses the go.mod in root.
func NewProject(root string) (*Project, error) {
	modPath := filepath.Join(root, "go.mod")
	modBytes, err := os.ReadFile(modPath)
	if err != nil {
		return nil, fmt.Errorf("could not read go.mod file: %w", err)
	}
	modFile, err := modfile.Parse(modPath, modBytes, nil)
	if err != nil {
		return nil, fmt.Errorf("could not parse go.mod file: %w", err)
	}
	return &Project{Root: root, Mod: modFile}, nil
}

// DependsOn returns the deps the project requires, replaces, or is.
func (p *Project) DependsOn(deps ...string) mo.Option[[]string] {
	if p == nil || p.Mod == nil || len(deps) == 0 {
		return mo.None[[]string]()
	}
	available := map[string]struct{}{}
	if p.Mod.Module != nil && p.Mod.Module.Mod.Path != "" {
		available[p.Mod.Module.Mod.Path] = struct{}{}
	}
	for _, req := range p.Mod.Require {
		available[req.Mod.Path] = struct{}{}
	}
	for _, rep := range p.Mod.Replace {
		if rep.Old.Path != "" {
			available[rep.Old.Path] = struct{}{}
		}
		if rep.New.Path != "" {
			available[rep.New.Path] = struct{}{}
		}
	}
	matched := lo.Filter(deps, func(d string, _ int) bool {
		_, ok := available[d]
		return ok
	})
	return lo.Ternary(len(matched) == 0, mo.None[[]string](), mo.Some(matched))
}

// ToolModulePath returns the module path of the running binary.
func ToolModulePath() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Path != "" {
		return bi.Main.Path
	}
	return "github.com/kcmvp/xschema"
}
