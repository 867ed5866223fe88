// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
)

const (
	// DefaultModulesDir is the directory name searched in every ancestor of a
	// requesting module.
	DefaultModulesDir = "modules"
	// DefaultManifestName is the package manifest file looked up in package directories.
	DefaultManifestName = "module.cue"
	// DefaultExtension is the extension used for files whose extension has no
	// registration.
	DefaultExtension = ".sh"
)

type (
	// BuiltinFunc produces the exports of a built-in module. It runs at most
	// once per engine.
	BuiltinFunc func() (any, error)

	// OverrideFunc produces the exports substituted for an overridden request.
	OverrideFunc func(request string) (any, error)

	// Options configures an Engine. Build it with NewOptions so the default
	// extensions are registered. NewEngine takes a copy.
	Options struct {
		// WorkDir anchors relative requests issued without a parent module.
		// Empty means the process working directory.
		WorkDir string
		// FS is the filesystem modules are read from. Nil means the OS filesystem.
		FS afero.Fs
		// Paths are the global roots searched after a module's own ancestry.
		// Use AddPath to keep them absolute and unique.
		Paths []string
		// ModulesDir is the per-ancestor modules directory name.
		ModulesDir string
		// ManifestName is the package manifest file name.
		ManifestName string
		// DefaultExtension handles files whose extension is not registered.
		DefaultExtension string
		// PreserveSymlinks keeps symlinked dependency paths as found instead
		// of resolving them. The entry module is always resolved.
		PreserveSymlinks bool
		// Reload bypasses the registry so every request executes its file again.
		Reload bool
		// AllowExternalModules permits requests other than built-ins.
		AllowExternalModules bool
		// UseSandbox runs bodies in Sandbox instead of the ambient scope.
		UseSandbox bool
		Sandbox    *Sandbox
		// Blacklist names requests that are always rejected.
		Blacklist []string
		// Whitelist, when non-empty, names the only requests that are allowed.
		Whitelist []string
		// CopyBuiltins names built-ins handed out as a deep copy on every request.
		CopyBuiltins []string
		Builtins     map[string]BuiltinFunc
		// Overrides map exact request names to substituted exports.
		Overrides map[string]OverrideFunc
		// Executors map extensions to the executor that runs their content.
		Executors    map[string]Executor
		NativeLoader NativeLoader
		Listener     Listener
		Logger       *log.Logger

		extensions []*extension
	}

	extension struct {
		name         string
		native       bool
		transformers []Transformer
	}
)

// NewOptions returns options with external modules allowed and the default
// extensions registered in probe order: ".sh" text, ".json" data, ".so" native.
func NewOptions() *Options {
	o := &Options{
		ModulesDir:           DefaultModulesDir,
		ManifestName:         DefaultManifestName,
		DefaultExtension:     DefaultExtension,
		AllowExternalModules: true,
		Builtins:             map[string]BuiltinFunc{},
		Overrides:            map[string]OverrideFunc{},
		Executors:            map[string]Executor{},
	}
	_ = o.AddExtension(DefaultExtension)
	_ = o.AddExtension(".json", JSONTransformer())
	_ = o.AddNativeExtension(".so")
	return o
}

// AddPath appends global roots. Relative paths are made absolute against
// WorkDir; paths already present are skipped.
func (o *Options) AddPath(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(o.workDir(), p)
		}
		p = filepath.Clean(p)
		if !slices.Contains(o.Paths, p) {
			o.Paths = append(o.Paths, p)
		}
	}
}

// AddExtension registers ext and appends the transformers whose names are
// not yet registered for it. Registering a known extension keeps its probe
// position.
func (o *Options) AddExtension(ext string, transformers ...Transformer) error {
	x, err := o.extensionFor(ext)
	if err != nil {
		return err
	}
	for _, t := range transformers {
		if t.Fn == nil {
			return fmt.Errorf("transformer %q for %s has no function", t.Name, ext)
		}
		if slices.ContainsFunc(x.transformers, func(have Transformer) bool { return have.Name == t.Name }) {
			continue
		}
		x.transformers = append(x.transformers, t)
	}
	return nil
}

// AddNativeExtension registers ext as an opaque binary handled by the NativeLoader.
func (o *Options) AddNativeExtension(ext string) error {
	x, err := o.extensionFor(ext)
	if err != nil {
		return err
	}
	x.native = true
	return nil
}

// AddExtensionList registers several extensions. They are added in sorted
// order so the probe order does not depend on map iteration.
func (o *Options) AddExtensionList(list map[string][]Transformer) error {
	for _, ext := range slices.Sorted(maps.Keys(list)) {
		if err := o.AddExtension(ext, list[ext]...); err != nil {
			return err
		}
	}
	return nil
}

// AddOverride substitutes fn's result for every request of exactly name.
func (o *Options) AddOverride(name string, fn OverrideFunc) {
	if o.Overrides == nil {
		o.Overrides = map[string]OverrideFunc{}
	}
	o.Overrides[name] = fn
}

// AddOverrideList registers several overrides.
func (o *Options) AddOverrideList(list map[string]OverrideFunc) {
	for name, fn := range list {
		o.AddOverride(name, fn)
	}
}

// Extensions returns the registered extensions in probe order.
func (o *Options) Extensions() []string {
	out := make([]string, len(o.extensions))
	for i, x := range o.extensions {
		out[i] = x.name
	}
	return out
}

// Transformers returns the names of the transformers registered for ext.
func (o *Options) Transformers(ext string) []string {
	x := o.lookupExtension(ext)
	if x == nil {
		return nil
	}
	names := make([]string, len(x.transformers))
	for i, t := range x.transformers {
		names[i] = t.Name
	}
	return names
}

func (o *Options) extensionFor(ext string) (*extension, error) {
	if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
		return nil, fmt.Errorf("%w: %q must start with \".\"", ErrInvalidExtension, ext)
	}
	if x := o.lookupExtension(ext); x != nil {
		return x, nil
	}
	x := &extension{name: ext}
	o.extensions = append(o.extensions, x)
	return x, nil
}

func (o *Options) lookupExtension(ext string) *extension {
	for _, x := range o.extensions {
		if x.name == ext {
			return x
		}
	}
	return nil
}

func (o *Options) workDir() string {
	if o.WorkDir != "" {
		return o.WorkDir
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// clone copies o so later changes by the caller do not reach an engine.
func (o *Options) clone() *Options {
	c := *o
	c.Paths = slices.Clone(o.Paths)
	c.Blacklist = slices.Clone(o.Blacklist)
	c.Whitelist = slices.Clone(o.Whitelist)
	c.CopyBuiltins = slices.Clone(o.CopyBuiltins)
	c.Builtins = maps.Clone(o.Builtins)
	c.Overrides = maps.Clone(o.Overrides)
	c.Executors = maps.Clone(o.Executors)
	c.extensions = make([]*extension, len(o.extensions))
	for i, x := range o.extensions {
		c.extensions[i] = &extension{name: x.name, native: x.native, transformers: slices.Clone(x.transformers)}
	}
	return &c
}

// withDefaults fills the zero fields NewEngine relies on.
func (o *Options) withDefaults() *Options {
	if o.WorkDir == "" {
		o.WorkDir = o.workDir()
	}
	if o.FS == nil {
		o.FS = afero.NewOsFs()
	}
	if o.ModulesDir == "" {
		o.ModulesDir = DefaultModulesDir
	}
	if o.ManifestName == "" {
		o.ManifestName = DefaultManifestName
	}
	if o.DefaultExtension == "" {
		o.DefaultExtension = DefaultExtension
	}
	if o.lookupExtension(o.DefaultExtension) == nil {
		_ = o.AddExtension(o.DefaultExtension)
	}
	if o.Listener == nil {
		o.Listener = nopListener{}
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}
