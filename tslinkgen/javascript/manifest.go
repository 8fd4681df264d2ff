package javascript

import (
	"encoding/json"
	"path"

	tslink "github.com/broady/tslink"
	"github.com/broady/tslink/tslinkgen/sink"
)

// Manifest holds the package.json fields that come from configuration.
type Manifest struct {
	Name    string
	Version string
}

type packageJSON struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Files   []string `json:"files"`
	Module  string   `json:"module"`
	Types   string   `json:"types"`
}

// EmitManifest renders package.json next to lib.js. The package ships the
// addon, the loader and the ambient declarations.
func (e *Emitter) EmitManifest(pass *sink.Pass) error {
	if err := e.validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(packageJSON{
		Name:    e.opts.Package.Name,
		Version: e.opts.Package.Version,
		Files:   []string{e.opts.Addon, "lib.js", "lib.d.ts"},
		Module:  "lib.js",
		Types:   "lib.d.ts",
	}, "", "    ")
	if err != nil {
		return tslink.Wrap(tslink.CodeRender, err, "encode package.json")
	}
	pass.Append(path.Join(path.Dir(e.LibPath()), "package.json"), string(data))
	return nil
}
