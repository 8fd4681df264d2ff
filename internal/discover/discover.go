// Package discover loads the Go packages a tslink run visits.
//
// Packages are loaded with syntax and type information through
// golang.org/x/tools/go/packages, the same way the go command resolves
// patterns:
//   - "." for current directory
//   - "./..." for every package below it
//   - Import path like "github.com/foo/bar"
package discover

import (
	"context"
	"go/token"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/tools/go/packages"

	tslink "github.com/broady/tslink"
	"github.com/broady/tslink/tslinkgen/provider"
)

// Mode is the load mode: enough to read directives and resolve types.
const Mode = packages.NeedName | packages.NeedFiles | packages.NeedImports |
	packages.NeedSyntax | packages.NeedTypes | packages.NeedTypesInfo | packages.NeedModule

// Result contains the loaded packages and module info.
type Result struct {
	// Packages in visit order: a package comes after the packages it imports.
	Packages   []*provider.Package
	ModulePath string
	ModuleDir  string // directory containing go.mod
}

// Load loads the packages matching patterns, relative to dir.
func Load(ctx context.Context, dir string, patterns ...string) (*Result, error) {
	if len(patterns) == 0 {
		patterns = []string{"."}
	}
	cfg := &packages.Config{
		Context: ctx,
		Mode:    Mode,
		Dir:     dir,
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, tslink.Wrap(tslink.CodeAccess, err, "load packages")
	}
	if len(pkgs) == 0 {
		return nil, tslink.Errorf(tslink.CodeFileNotFound, "no packages found matching %q", patterns)
	}
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return nil, packageError(pkg)
		}
	}

	result := &Result{}
	for _, pkg := range pkgs {
		if pkg.Module != nil {
			result.ModulePath = pkg.Module.Path
			result.ModuleDir = pkg.Module.Dir
			break
		}
	}
	for _, pkg := range order(pkgs) {
		if len(pkg.Syntax) == 0 {
			continue
		}
		result.Packages = append(result.Packages, &provider.Package{
			Name:  pkg.Name,
			Path:  pkg.PkgPath,
			Fset:  pkg.Fset,
			Files: pkg.Syntax,
			Info:  pkg.TypesInfo,
		})
	}
	return result, nil
}

// order sorts roots so that imported roots come first. Among the roots
// whose imports are all placed, the smallest import path goes next.
// Imports outside of roots are not followed.
func order(roots []*packages.Package) []*packages.Package {
	byID := make(map[string]*packages.Package, len(roots))
	for _, pkg := range roots {
		byID[pkg.ID] = pkg
	}

	pending := make(map[string]int, len(roots))       // unplaced imports per root
	importers := make(map[string][]string, len(roots)) // root ID -> importing root IDs
	for _, pkg := range roots {
		for _, imp := range pkg.Imports {
			if _, ok := byID[imp.ID]; !ok || imp.ID == pkg.ID {
				continue
			}
			pending[pkg.ID]++
			importers[imp.ID] = append(importers[imp.ID], pkg.ID)
		}
	}

	var ready []*packages.Package
	for _, pkg := range roots {
		if pending[pkg.ID] == 0 {
			ready = append(ready, pkg)
		}
	}

	out := make([]*packages.Package, 0, len(roots))
	placed := make(map[string]bool, len(roots))
	for len(out) < len(roots) {
		if len(ready) == 0 {
			// Import cycles cannot compile; place the rest by path.
			for _, pkg := range roots {
				if !placed[pkg.ID] {
					ready = append(ready, pkg)
				}
			}
		}
		sort.Slice(ready, func(i, j int) bool { return ready[i].PkgPath < ready[j].PkgPath })
		next := ready[0]
		ready = ready[1:]
		if placed[next.ID] {
			continue
		}
		placed[next.ID] = true
		out = append(out, next)
		for _, id := range importers[next.ID] {
			if pending[id]--; pending[id] == 0 && !placed[id] {
				ready = append(ready, byID[id])
			}
		}
	}
	return out
}

// packageError reports the first load error of pkg that carries a
// position. Build failures from go list put it in the message instead.
func packageError(pkg *packages.Package) error {
	first := pkg.Errors[0]
	msg := first.Msg
	pos, ok := token.Position{}, false
	for _, e := range pkg.Errors {
		if pos, ok = parsePos(e.Pos); ok {
			msg = e.Msg
			break
		}
	}
	if !ok {
		pos, msg, ok = posInMessage(first.Msg)
		if ok && !filepath.IsAbs(pos.Filename) && len(pkg.GoFiles) > 0 {
			pos.Filename = filepath.Join(filepath.Dir(pkg.GoFiles[0]), pos.Filename)
		}
	}

	err := tslink.Errorf(tslink.CodeAccess, "package %s: %s", pkg.PkgPath, msg)
	if ok {
		err = err.At(pos)
	}
	if len(pkg.Errors) > 1 {
		err = err.WithDetail("errors", strconv.Itoa(len(pkg.Errors)))
	}
	return err
}

// posInMessage finds the first "file:line:col: message" line of a build
// log and returns its position and message.
func posInMessage(s string) (token.Position, string, bool) {
	for _, line := range strings.Split(s, "\n") {
		loc, rest, ok := strings.Cut(strings.TrimSpace(line), ": ")
		if !ok {
			continue
		}
		if pos, ok := parsePos(loc); ok {
			return pos, rest, true
		}
	}
	return token.Position{}, s, false
}

// parsePos parses the "file:line:col" or "file:line" form of a load error.
func parsePos(s string) (token.Position, bool) {
	var pos token.Position
	rest := s
	var nums []int
	for len(nums) < 2 {
		i := strings.LastIndexByte(rest, ':')
		if i < 0 {
			break
		}
		n, err := strconv.Atoi(rest[i+1:])
		if err != nil {
			break
		}
		nums = append(nums, n)
		rest = rest[:i]
	}
	switch len(nums) {
	case 2:
		pos.Line, pos.Column = nums[1], nums[0]
	case 1:
		pos.Line = nums[0]
	default:
		return pos, false
	}
	pos.Filename = rest
	return pos, pos.Filename != ""
}

// Dir returns the directory of pkg's first file.
func Dir(pkg *provider.Package) string {
	if len(pkg.Files) == 0 {
		return ""
	}
	return filepath.Dir(pkg.Fset.Position(pkg.Files[0].Pos()).Filename)
}
