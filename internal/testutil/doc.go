// SPDX-License-Identifier: MPL-2.0

// Package testutil provides test helpers that fail the test on setup errors:
// module tree writers for the OS and in-memory filesystems, symlink creation,
// a stat-counting filesystem, and environment and home directory overrides.
package testutil
