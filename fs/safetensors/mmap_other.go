//go:build !unix && !windows

package safetensors

import (
	"io"
	"os"
)

// mmapFile reads the whole file on platforms without mmap support.
func mmapFile(f *os.File, size int64) ([]byte, func() error, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, nil, err
	}
	return data, nil, nil
}
