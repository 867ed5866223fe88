// SPDX-License-Identifier: MPL-2.0

// Package runtime provides the execution technologies behind modload's
// module bodies.
//
// Two executors implement modload.Executor:
//   - shell: runs POSIX shell bodies with the embedded mvdan/sh interpreter
//   - go: interprets Go bodies with yaegi
//
// A third loader, PluginLoader, implements modload.NativeLoader by opening Go
// plugins.
//
// Bodies run in the scope chosen by the engine. In the ambient scope they share
// one Environment seeded from the process environment; in the isolated scope
// they see only the sandbox's variables, directory and output streams.
// Variables exported by a body are written back to whichever store it ran in,
// so later bodies observe them.
//
// Registry maps executor names to executors so configuration can bind file
// extensions to them by name.
package runtime
