package models

import (
	"bytes"
	"io"
	"os"

	"github.com/dmitrijs2005/sendit/internal/filex"
)

// LocalFile is a file picked for upload.
type LocalFile struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// LocalFileFromPath describes a file on disk; it is opened only when the
// upload starts.
func LocalFileFromPath(path string) (LocalFile, error) {
	info, err := filex.Stat(path)
	if err != nil {
		return LocalFile{}, err
	}
	return LocalFile{
		Name: info.Name,
		Size: info.Size,
		Open: func() (io.ReadCloser, error) { return os.Open(info.Path) },
	}, nil
}

// LocalFileFromBytes wraps in-memory content.
func LocalFileFromBytes(name string, content []byte) LocalFile {
	return LocalFile{
		Name: name,
		Size: int64(len(content)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(content)), nil },
	}
}
