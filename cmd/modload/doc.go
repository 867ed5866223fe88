// SPDX-License-Identifier: MPL-2.0

/*
Package cmd implements the modload command line.

Commands share an App, which owns the configuration provider and the
logger. Each invocation loads the configuration once and builds fresh
engines from it:

	run      load an entry module
	resolve  print the file a request resolves to
	graph    print the require tree and report cycles
	cache    list the registry after loading an entry
	check    load many entries on independent engines
	config   show, locate or create the configuration file
	issue    explain a failure

Failures carry an exit code through ExitError: 1 when loading fails, 2 when
the command line is wrong.
*/
package cmd
