package main

import (
	"errors"
	"path/filepath"
	"strings"
)

// ArchiveMap 把请求中的 db 参数解析为瓦片库文件路径
type ArchiveMap struct {
	Root    string
	Default string
}

// Resolve maps a request reference to a filesystem path. With Root set the
// result must stay inside Root.
func (m *ArchiveMap) Resolve(ref string) (string, error) {
	if ref == "" {
		ref = m.Default
	}
	if ref == "" {
		return "", &StorageOpenError{Ref: ref, Err: errors.New("no archive given")}
	}
	if m.Root == "" {
		return filepath.Clean(ref), nil
	}
	root, err := filepath.Abs(m.Root)
	if err != nil {
		return "", &StorageOpenError{Ref: ref, Err: err}
	}
	path := filepath.Join(root, filepath.FromSlash(ref))
	if path != root && !strings.HasPrefix(path, root+string(filepath.Separator)) {
		return "", &StorageOpenError{Ref: ref, Err: errors.New("outside archive root")}
	}
	return path, nil
}
