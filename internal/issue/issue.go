// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"sort"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ModuleNotFoundId Id = iota + 1
	PolicyViolationId
	ManifestParseErrorId
	DataParseErrorId
	ScriptFailedId
	MissingEntrypointId
	NativeUnsupportedId
	NoExecutorId
	ConfigLoadFailedId
	DependencyCycleId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	name     string      // stable name accepted by 'modload issue'
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) Name() string {
	return i.name
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue as terminal markdown with the glamour style at
// stylePath ("dark", "light", "notty" or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.extLinks) > 0 {
		md += "\n\n## See also\n"
		for _, link := range i.extLinks {
			md += "- <" + string(link) + ">\n"
		}
	}
	return render(md, stylePath)
}

var (
	render = glamour.Render

	moduleNotFoundIssue = &Issue{
		id:   ModuleNotFoundId,
		name: "module-not-found",
		mdMsg: `
# Module not found!

No candidate root produced a file for the request.

## Search order
1. The request itself, when it starts with '/', './' or '../'
2. A 'modules' directory in the requesting module's directory and each ancestor
3. MODLOAD_PATH entries, '~/.modload_modules', '~/.modload_libraries'
4. The 'paths' list of your modload.cue

## Things you can try
- Check the spelling of the request and the extension list:
~~~
$ modload resolve ./lib/util --verbose
~~~
- Add the directory holding the module to 'paths' in modload.cue`,
		extLinks: []HttpLink{"https://nodejs.org/api/modules.html#all-together"},
	}

	policyViolationIssue = &Issue{
		id:   PolicyViolationId,
		name: "policy-violation",
		mdMsg: `
# Request refused by policy!

The request was rejected before resolution.

## Rules checked (in order)
1. 'blacklist' lists the request
2. 'whitelist' is non-empty and does not list the request
3. 'allow_external_modules' is false and the request is not a built-in

## Things you can try
- Inspect the effective lists:
~~~
$ modload config show
~~~
- With 'allow_external_modules: false' only built-ins load, relative requests included`,
	}

	manifestParseErrorIssue = &Issue{
		id:   ManifestParseErrorId,
		name: "manifest-parse-error",
		mdMsg: `
# Failed to parse a module manifest!

A directory request found a 'module.cue' that is not valid CUE or does not match the manifest schema.

## Example manifest
~~~cue
main: "lib/index.sh"
~~~

## Things you can try
- Validate the file with the CUE tool:
~~~
$ cue vet module.cue
~~~`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	dataParseErrorIssue = &Issue{
		id:   DataParseErrorId,
		name: "data-parse-error",
		mdMsg: `
# Failed to parse a data module!

A '.json', '.yaml', '.toml' or '.cue' module could not be decoded. Data modules export their decoded value and never run.

## Things you can try
- Check the file for syntax errors; the message names the file and, where known, the position
- Make sure the extension matches the format of the content`,
	}

	scriptFailedIssue = &Issue{
		id:   ScriptFailedId,
		name: "script-failed",
		mdMsg: `
# A module body failed!

A shell module exited with a non-zero status. The module was removed from the cache, so the next require runs it again.

## Things you can try
- Run the module on its own to see its output:
~~~
$ modload run ./path/to/module.sh
~~~
- Inside shell bodies, 'exports', 'require' and 'module' are commands; see 'modload issue script-failed'`,
		extLinks: []HttpLink{"https://pkg.go.dev/mvdan.cc/sh/v3/interp"},
	}

	missingEntrypointIssue = &Issue{
		id:   MissingEntrypointId,
		name: "missing-entrypoint",
		mdMsg: `
# Go module has no entrypoint!

Go module bodies are interpreted and must define:

~~~go
package main

import "modload"

func Module(exports map[string]any, require func(string) (any, error),
	module *modload.Module, filename, dirname string) error {
	exports["name"] = "lib"
	return nil
}
~~~`,
		extLinks: []HttpLink{"https://github.com/traefik/yaegi"},
	}

	nativeUnsupportedIssue = &Issue{
		id:   NativeUnsupportedId,
		name: "native-unsupported",
		mdMsg: `
# Native module could not be loaded!

'.so' modules are Go plugins exporting a symbol named 'Exports'.

## Things you can try
- Build the plugin with the same Go version and module versions as modload:
~~~
$ go build -buildmode=plugin -o lib.so ./lib
~~~
- Native modules need a platform with Go plugin support (Linux, macOS, FreeBSD)`,
		extLinks: []HttpLink{"https://pkg.go.dev/plugin"},
	}

	noExecutorIssue = &Issue{
		id:   NoExecutorId,
		name: "no-executor",
		mdMsg: `
# No executor for this extension!

The file's extension is registered but nothing runs its content.

## Things you can try
- Map the extension to an executor in modload.cue:
~~~cue
executors: ".bash": "shell"
~~~
- Or give it a data transformer:
~~~cue
extensions: ".yml": ["yaml"]
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id:   ConfigLoadFailedId,
		name: "config-load-failed",
		mdMsg: `
# Failed to load the configuration!

modload.cue is read from the config directory, then from the working directory, unless '--config' names a file.

## Things you can try
- Write a fresh file with the defaults:
~~~
$ modload config init
~~~
- Print the effective configuration:
~~~
$ modload config show
~~~`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	dependencyCycleIssue = &Issue{
		id:   DependencyCycleId,
		name: "dependency-cycle",
		mdMsg: `
# Dependency cycle detected!

Modules in a cycle see each other's partially initialized exports: the module that closes the cycle gets whatever the other one had exported when it issued its require.

## Things you can try
- Move the shared values into a third module both can require
- Require lazily, inside the code path that needs the value`,
	}

	issues = map[Id]*Issue{
		moduleNotFoundIssue.Id():     moduleNotFoundIssue,
		policyViolationIssue.Id():    policyViolationIssue,
		manifestParseErrorIssue.Id(): manifestParseErrorIssue,
		dataParseErrorIssue.Id():     dataParseErrorIssue,
		scriptFailedIssue.Id():       scriptFailedIssue,
		missingEntrypointIssue.Id():  missingEntrypointIssue,
		nativeUnsupportedIssue.Id():  nativeUnsupportedIssue,
		noExecutorIssue.Id():         noExecutorIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		dependencyCycleIssue.Id():    dependencyCycleIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	out := maps.Values(issues)
	sort.Slice(out, func(a, b int) bool { return out[a].id < out[b].id })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}

// Lookup finds an issue by its stable name.
func Lookup(name string) *Issue {
	for _, i := range issues {
		if i.name == name {
			return i
		}
	}
	return nil
}
