//go:build windows

package safetensors

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// mmapFile memory-maps a file read-only.
func mmapFile(f *os.File, size int64) ([]byte, func() error, error) {
	handle, err := windows.CreateFileMapping(
		windows.Handle(f.Fd()),
		nil,
		windows.PAGE_READONLY,
		uint32(size>>32), //nolint:gosec // G115
		uint32(size),     //nolint:gosec // G115
		nil,
	)
	if err != nil {
		return nil, nil, err
	}
	defer windows.CloseHandle(handle) //nolint:errcheck

	addr, err := windows.MapViewOfFile(handle, windows.FILE_MAP_READ, 0, 0, uintptr(size))
	if err != nil {
		return nil, nil, err
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size)) //nolint:govet
	return data, func() error { return windows.UnmapViewOfFile(addr) }, nil
}
