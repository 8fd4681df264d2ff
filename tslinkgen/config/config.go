// Package config loads the project settings of a tslink run.
//
// Settings come from the optional tslink.toml next to the project's go.mod
// and from TSLINK_* environment variables, which take precedence. The go.mod
// is required: it anchors the project root and names the package manifest.
package config

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"golang.org/x/mod/modfile"

	tslink "github.com/broady/tslink"
	"github.com/broady/tslink/tslinkgen/ir"
	"github.com/broady/tslink/tslinkgen/javascript"
	"github.com/broady/tslink/tslinkgen/provider"
	"github.com/broady/tslink/tslinkgen/typescript"
)

const (
	// FileName is the settings file looked up in the project root.
	FileName = "tslink.toml"

	// EnvPrefix prefixes environment overrides, e.g. TSLINK_NODE.
	EnvPrefix = "TSLINK"
)

// Package holds the package.json fields.
type Package struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version" validate:"semver"`
}

// Config is the validated project configuration.
type Config struct {
	// Node is the path of the native addon relative to Root. Its directory
	// receives lib.js, lib.d.ts and package.json.
	Node string `mapstructure:"node" validate:"omitempty,endswith=.node"`

	// Path is the default .ts target for entities without a ts target.
	Path string `mapstructure:"path" validate:"omitempty,endswith=.ts"`

	SnakeCaseNaming      string            `mapstructure:"snake_case_naming" validate:"omitempty,naming"`
	ExceptionSuppression bool              `mapstructure:"exception_suppression"`
	IntOver32AsBigInt    bool              `mapstructure:"int_over_32_as_big_int"`
	TypeMap              map[string]string `mapstructure:"-" validate:"dive,keys,required,endkeys,oneof=number bigint string boolean"`
	EnumRepresentation   string            `mapstructure:"enum_representation" validate:"oneof=union flat discriminated_union"`
	Package              Package           `mapstructure:"package"`

	// Root is the directory holding go.mod.
	Root string `mapstructure:"-"`

	// Module is the module path declared in go.mod.
	Module string `mapstructure:"-"`
}

// Load finds the project root at or above dir and reads its settings.
func Load(dir string) (*Config, error) {
	root, module, err := findModule(dir)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, module)

	settings := filepath.Join(root, FileName)
	typeMap := map[string]string{}
	if _, err := os.Stat(settings); err == nil {
		v.SetConfigFile(settings)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, tslink.Wrap(tslink.CodeMalformedSettings, err, "read "+settings)
		}
		if typeMap, err = readTypeMap(settings); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, tslink.Wrap(tslink.CodeAccess, err, "stat "+settings)
	}

	cfg := &Config{Root: root, Module: module}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, tslink.Wrap(tslink.CodeMalformedSettings, err, "decode "+settings)
	}
	cfg.TypeMap = typeMap
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, tslink.FromValidation(err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, module string) {
	v.SetDefault("node", "")
	v.SetDefault("path", "")
	v.SetDefault("snake_case_naming", "")
	v.SetDefault("exception_suppression", false)
	v.SetDefault("int_over_32_as_big_int", false)
	v.SetDefault("enum_representation", ir.EnumUnion.String())
	v.SetDefault("package.name", path.Base(module))
	v.SetDefault("package.version", "0.0.0")
}

// readTypeMap decodes the type_map table directly; viper folds keys to lower
// case and Go identifiers are case sensitive.
func readTypeMap(settings string) (map[string]string, error) {
	data, err := os.ReadFile(settings)
	if err != nil {
		return nil, tslink.Wrap(tslink.CodeAccess, err, "read "+settings)
	}
	var doc struct {
		TypeMap map[string]string `toml:"type_map"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, tslink.Wrap(tslink.CodeMalformedSettings, err, "decode type_map in "+settings)
	}
	if doc.TypeMap == nil {
		return map[string]string{}, nil
	}
	return doc.TypeMap, nil
}

// findModule walks up from dir to the nearest go.mod and returns its
// directory and module path.
func findModule(dir string) (root, module string, err error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", "", tslink.Wrap(tslink.CodeAccess, err, "resolve "+dir)
	}
	for d := abs; ; {
		file := filepath.Join(d, "go.mod")
		data, err := os.ReadFile(file)
		switch {
		case err == nil:
			mf, err := modfile.ParseLax(file, data, nil)
			if err != nil {
				return "", "", tslink.Wrap(tslink.CodeMalformedSettings, err, "parse "+file)
			}
			if mf.Module == nil || mf.Module.Mod.Path == "" {
				return "", "", tslink.Errorf(tslink.CodeMalformedSettings, "%s declares no module", file)
			}
			return d, mf.Module.Mod.Path, nil
		case !os.IsNotExist(err):
			return "", "", tslink.Wrap(tslink.CodeAccess, err, "read "+file)
		}
		parent := filepath.Dir(d)
		if parent == d {
			return "", "", tslink.Errorf(tslink.CodeFileNotFound, "fail to find go.mod in %s or any parent directory", abs)
		}
		d = parent
	}
}

// normalize rewrites paths relative to Root with forward slashes.
func (c *Config) normalize() error {
	for _, p := range []*string{&c.Node, &c.Path} {
		if *p == "" {
			continue
		}
		rel := filepath.Clean(*p)
		if filepath.IsAbs(rel) {
			r, err := filepath.Rel(c.Root, rel)
			if err != nil {
				return tslink.Wrap(tslink.CodeInvalidConfiguration, err, "resolve "+*p)
			}
			rel = r
		}
		rel = filepath.ToSlash(rel)
		if rel == ".." || strings.HasPrefix(rel, "../") {
			return tslink.Errorf(tslink.CodeInvalidConfiguration, "%s is outside of the project root %s", *p, c.Root)
		}
		*p = rel
	}
	return nil
}

// Dist is the directory of the native addon, or "" when node is unset.
func (c *Config) Dist() string {
	if c.Node == "" {
		return ""
	}
	return path.Dir(c.Node)
}

// Addon is the file name of the native addon, or "" when node is unset.
func (c *Config) Addon() string {
	if c.Node == "" {
		return ""
	}
	return path.Base(c.Node)
}

func (c *Config) naming(kind string) bool {
	for _, part := range strings.Split(c.SnakeCaseNaming, ",") {
		if strings.TrimSpace(part) == kind {
			return true
		}
	}
	return false
}

// Defaults is the directive policy layer.
func (c *Config) Defaults() ir.Defaults {
	repr, _ := ir.ParseEnumRepresentation(c.EnumRepresentation)
	return ir.Defaults{
		CamelCaseFields:      c.naming("fields"),
		CamelCaseMethods:     c.naming("methods"),
		ExceptionSuppression: c.ExceptionSuppression,
		EnumRepresentation:   repr,
	}
}

// ExtractOptions configures type extraction.
func (c *Config) ExtractOptions() provider.ExtractOptions {
	opts := provider.ExtractOptions{
		IntOver32AsBigInt: c.IntOver32AsBigInt,
		TypeMap:           make(map[string]ir.PrimitiveType, len(c.TypeMap)),
	}
	for name, ts := range c.TypeMap {
		if p, ok := ir.ParsePrimitiveType(ts); ok {
			opts.TypeMap[name] = p
		}
	}
	return opts
}

// TypeScript configures the emitter of one dialect.
func (c *Config) TypeScript(d typescript.Dialect) typescript.Options {
	return typescript.Options{Dialect: d, DefaultPath: c.Path, Dist: c.Dist()}
}

// JavaScript configures the loader emitter.
func (c *Config) JavaScript() javascript.Options {
	return javascript.Options{
		Dist:    c.Dist(),
		Addon:   c.Addon(),
		Package: javascript.Manifest{Name: c.Package.Name, Version: c.Package.Version},
	}
}
