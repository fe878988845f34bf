package content

import (
	"context"
	"testing"

	"github.com/spf13/afero"

	"golang-camt-importer/internal/session"
	"golang-camt-importer/pkg/errors"
)

func errorCode(t *testing.T, err error) errors.ErrorCode {
	t.Helper()
	importerErr, ok := errors.AsImporterError(err)
	if !ok {
		t.Fatalf("expected ImporterError, got %v", err)
	}
	return importerErr.Code
}

func TestStatic(t *testing.T) {
	data, err := Static("<Document/>").Content(context.Background())
	if err != nil || string(data) != "<Document/>" {
		t.Errorf("expected buffer back, got %q (%v)", data, err)
	}

	_, err = Static(" \n\t").Content(context.Background())
	if code := errorCode(t, err); code != errors.CodeEmptyContent {
		t.Errorf("expected %s, got %s", errors.CodeEmptyContent, code)
	}
}

func TestFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/in/statement.xml", []byte("<Document/>"), 0644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := afero.WriteFile(fs, "/in/empty.xml", nil, 0644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		path string
		code errors.ErrorCode
	}{
		{"existing", "/in/statement.xml", ""},
		{"missing", "/in/missing.xml", errors.CodeFileNotFound},
		{"empty", "/in/empty.xml", errors.CodeEmptyContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &File{Fs: fs, Path: tt.path}
			data, err := source.Content(context.Background())
			if tt.code == "" {
				if err != nil || string(data) != "<Document/>" {
					t.Errorf("expected file content, got %q (%v)", data, err)
				}
				return
			}
			if code := errorCode(t, err); code != tt.code {
				t.Errorf("expected %s, got %s", tt.code, code)
			}
		})
	}
}

func TestUpload(t *testing.T) {
	store := session.NewStore(0)
	Store(store, "s1", []byte("<Document/>"))

	data, err := (&Upload{Store: store, SessionID: "s1"}).Content(context.Background())
	if err != nil || string(data) != "<Document/>" {
		t.Errorf("expected uploaded content, got %q (%v)", data, err)
	}

	_, err = (&Upload{Store: store, SessionID: "s2"}).Content(context.Background())
	if code := errorCode(t, err); code != errors.CodeFileNotFound {
		t.Errorf("expected %s for another session, got %s", errors.CodeFileNotFound, code)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Static("<Document/>").Content(ctx); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
