//go:build !((darwin || freebsd || linux || netbsd) && !android && (amd64 || arm64))

package native

import (
	"runtime"

	"github.com/wippyai/nativecall/errors"
)

func unsupported() error {
	return errors.Unsupported(errors.PhaseLoad, "shared libraries on "+runtime.GOOS+"/"+runtime.GOARCH)
}

func dlopen(string) (uintptr, error) { return 0, unsupported() }

func dlsym(uintptr, string) (uintptr, error) { return 0, unsupported() }

func dlclose(uintptr) error { return unsupported() }

func register(any, uintptr) error { return unsupported() }
