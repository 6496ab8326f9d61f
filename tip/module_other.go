//go:build !windows

package tip

import "github.com/pkg/errors"

// ModuleFileName is only implemented on Windows.
func ModuleFileName() (string, error) {
	return "", errors.Errorf("module file name lookup not supported on this platform (handle %#x)", uintptr(GetModuleHandle()))
}
