// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"runtime"
	"testing"

	"github.com/modload/modload/pkg/platform"
)

func TestSetHomeDir(t *testing.T) {
	key := "HOME"
	if runtime.GOOS == platform.Windows {
		key = "USERPROFILE"
	}

	tmpDir := t.TempDir()
	original, had := os.LookupEnv(key)

	cleanup := SetHomeDir(t, tmpDir)
	if got := os.Getenv(key); got != tmpDir {
		t.Errorf("%s = %q, want %q", key, got, tmpDir)
	}

	cleanup()
	got, has := os.LookupEnv(key)
	if has != had || got != original {
		t.Errorf("after cleanup %s = %q (set=%v), want %q (set=%v)", key, got, has, original, had)
	}
}
