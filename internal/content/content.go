// Package content resolves the statement bytes of a run.
//
// A run reads its statement either from a buffer handed over on the command
// line, from a file, or from an upload stored in the user's session.
package content

import (
	"bytes"
	"context"
	"os"

	"github.com/spf13/afero"

	"golang-camt-importer/internal/session"
	"golang-camt-importer/pkg/errors"
)

// UploadKey is the session key an uploaded statement is stored under
const UploadKey = "upload_data_file"

// Source supplies the complete statement content of a run
type Source interface {
	Content(ctx context.Context) ([]byte, error)
	Name() string
}

// Static is content supplied directly, e.g. read from stdin by the CLI.
type Static []byte

// Content returns the buffer
func (s Static) Content(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return checked(s.Name(), s)
}

// Name returns the source name used in errors
func (s Static) Name() string {
	return "cli buffer"
}

// File reads the statement from a file system
type File struct {
	Fs   afero.Fs
	Path string
}

// NewFile creates a file source on the OS file system
func NewFile(path string) *File {
	return &File{Fs: afero.NewOsFs(), Path: path}
}

// Content reads the whole file
func (f *File) Content(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(f.Fs, f.Path)
	if err != nil {
		code := errors.CodeFileNotFound
		if os.IsPermission(err) {
			code = errors.CodeFilePermission
		}
		return nil, errors.FileError(code, f.Path, err)
	}
	return checked(f.Path, data)
}

// Name returns the file path
func (f *File) Name() string {
	return f.Path
}

// Upload reads a statement uploaded earlier in a session
type Upload struct {
	Store     *session.Store
	SessionID string
}

// Content returns the stored upload
func (u *Upload) Content(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if u.Store == nil {
		return nil, errors.FileError(errors.CodeFileNotFound, u.Name(), nil)
	}

	data, ok := u.Store.GetBytes(u.SessionID, UploadKey)
	if !ok {
		return nil, errors.FileError(errors.CodeFileNotFound, u.Name(), nil).
			WithSuggestion("upload a statement in this session first")
	}
	return checked(u.Name(), data)
}

// Name returns the session-scoped upload key
func (u *Upload) Name() string {
	return "session " + u.SessionID + " " + UploadKey
}

// Store saves an upload for later runs of the session
func Store(store *session.Store, sessionID string, data []byte) {
	store.Set(sessionID, UploadKey, append([]byte(nil), data...))
}

func checked(name string, data []byte) ([]byte, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.FileError(errors.CodeEmptyContent, name, nil)
	}
	return data, nil
}
