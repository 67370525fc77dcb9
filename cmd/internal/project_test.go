package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
)

func TestDependsOn(t *testing.T) {
	p := &Project{
		Root: "/tmp",
		Mod: &modfile.File{
			Module:  &modfile.Module{Mod: module.Version{Path: "example.com/m"}},
			Require: []*modfile.Require{{Mod: module.Version{Path: "github.com/mattn/go-sqlite3"}}},
			Replace: []*modfile.Replace{
				{Old: module.Version{Path: "github.com/old/pkg"}, New: module.Version{Path: "github.com/new/pkg"}},
			},
		},
	}
	require.Equal(t, []string{"example.com/m"}, p.DependsOn("example.com/m").MustGet())
	require.Equal(t, []string{"github.com/mattn/go-sqlite3"}, p.DependsOn("github.com/lib/pq", "github.com/mattn/go-sqlite3").MustGet())
	require.True(t, p.DependsOn("github.com/old/pkg").IsPresent())
	require.True(t, p.DependsOn("github.com/new/pkg").IsPresent())
	require.True(t, p.DependsOn("does.not.exist").IsAbsent())
	require.True(t, p.DependsOn().IsAbsent())

	var none *Project
	require.True(t, none.DependsOn("example.com/m").IsAbsent())
}

func TestFindProject(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	p := FindProject(wd).MustGet()
	require.FileExists(t, filepath.Join(p.Root, "go.mod"))
	require.Equal(t, "github.com/kcmvp/xschema", p.Mod.Module.Mod.Path)
	require.True(t, p.DependsOn("github.com/mattn/go-sqlite3").IsPresent())

	require.True(t, FindProject(t.TempDir()).IsError())
}
