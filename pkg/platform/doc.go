// SPDX-License-Identifier: MPL-2.0

// Package platform names the operating systems modload branches on, for
// comparisons against runtime.GOOS.
package platform
