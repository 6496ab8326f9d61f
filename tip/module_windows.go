package tip

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// ModuleFileName returns the path of the image behind the handle set on
// attach.
func ModuleFileName() (string, error) {
	h := GetModuleHandle()
	if h == 0 {
		return "", errors.New("module handle not set (not attached yet?)")
	}

	b := make([]uint16, windows.MAX_LONG_PATH)
	n, err := windows.GetModuleFileName(windows.Handle(h), &b[0], uint32(len(b)))
	if err != nil {
		return "", errors.WithMessage(err, "while calling GetModuleFileNameW")
	}
	if n == 0 {
		return "", errors.New("GetModuleFileNameW returned an empty path")
	}
	return windows.UTF16ToString(b[:n]), nil
}
