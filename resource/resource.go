// Package resource resolves classpath-style locators to byte streams.
//
//	classpath:gridcache/failsafe.yaml   bundled with this module
//	file:/etc/app/grid.yaml             read through a core.ReadFS
//	/etc/app/grid.yaml                  same as file:
package resource

import (
	"embed"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/billy"
	"github.com/jmgilman/go/fs/core"
)

const (
	ClasspathPrefix = "classpath:"
	FilePrefix      = "file:"
)

//go:embed gridcache
var bundled embed.FS

// Bundled exposes the resources shipped with the module.
func Bundled() fs.FS { return bundled }

// Loader opens the resource named by a locator.
type Loader interface {
	Open(locator string) (io.ReadCloser, error)
}

// FSLoader reads classpath: locators from Classpath and everything else
// from Files.
type FSLoader struct {
	Classpath fs.FS
	Files     core.ReadFS

	abs bool // resolve relative file paths against the working directory
}

var _ Loader = (*FSLoader)(nil)

// NewLoader returns a loader over the bundled resources and the local disk.
func NewLoader() *FSLoader {
	return &FSLoader{Classpath: bundled, Files: billy.NewLocal(), abs: true}
}

func (l *FSLoader) Open(locator string) (io.ReadCloser, error) {
	scheme, path := split(locator)
	if path == "" {
		return nil, errors.Newf(errors.CodeInvalidInput, "empty resource path in %q", locator)
	}

	var (
		f   fs.File
		err error
	)
	switch scheme {
	case ClasspathPrefix:
		if l.Classpath == nil {
			return nil, errors.Newf(errors.CodeInvalidConfig, "no classpath filesystem for %q", locator)
		}
		f, err = l.Classpath.Open(strings.TrimPrefix(path, "/"))
	case FilePrefix, "":
		if l.Files == nil {
			return nil, errors.Newf(errors.CodeInvalidConfig, "no file filesystem for %q", locator)
		}
		if l.abs {
			if path, err = filepath.Abs(path); err != nil {
				return nil, errors.Wrapf(err, errors.CodeInvalidInput, "resolve %q", locator)
			}
		}
		f, err = l.Files.Open(path)
	default:
		return nil, errors.Newf(errors.CodeInvalidConfig, "unsupported resource scheme %q", scheme)
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return nil, errors.WithContext(
				errors.Wrapf(err, errors.CodeNotFound, "resource %q not found", locator),
				"locator", locator)
		}
		return nil, errors.Wrapf(err, errors.CodeUnavailable, "open resource %q", locator)
	}
	return f, nil
}

// split separates a "scheme:" prefix. Single letters before ':' are treated
// as Windows drive letters, not schemes.
func split(locator string) (scheme, path string) {
	i := strings.IndexByte(locator, ':')
	if i <= 1 || strings.ContainsAny(locator[:i], `/\`) {
		return "", locator
	}
	return locator[:i+1], locator[i+1:]
}
