package resource

import (
	"io"
	"testing"

	"github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/billy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, l Loader, locator string) string {
	t.Helper()
	rc, err := l.Open(locator)
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestOpenBundledFailsafe(t *testing.T) {
	body := readAll(t, NewLoader(), "classpath:gridcache/failsafe.yaml")
	assert.Contains(t, body, "expiration: 0s")

	// leading slash is tolerated like a classpath root
	body2 := readAll(t, NewLoader(), "classpath:/gridcache/failsafe.yaml")
	assert.Equal(t, body, body2)
}

func TestOpenFileThroughReadFS(t *testing.T) {
	mem := billy.NewMemory()
	require.NoError(t, mem.MkdirAll("etc/app", 0o755))
	require.NoError(t, mem.WriteFile("etc/app/grid.yaml", []byte("default: {backend: ristretto}\n"), 0o644))

	l := &FSLoader{Classpath: Bundled(), Files: mem}
	assert.Contains(t, readAll(t, l, "file:etc/app/grid.yaml"), "ristretto")
	assert.Contains(t, readAll(t, l, "etc/app/grid.yaml"), "ristretto")
}

func TestOpenErrorsCarryCodes(t *testing.T) {
	l := &FSLoader{Classpath: Bundled(), Files: billy.NewMemory()}

	cases := []struct {
		locator string
		code    errors.ErrorCode
	}{
		{"classpath:gridcache/missing.yaml", errors.CodeNotFound},
		{"file:nowhere.yaml", errors.CodeNotFound},
		{"s3:bucket/grid.yaml", errors.CodeInvalidConfig},
		{"classpath:", errors.CodeInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.locator, func(t *testing.T) {
			rc, err := l.Open(tc.locator)
			require.Error(t, err)
			assert.Nil(t, rc)
			assert.Equal(t, tc.code, errors.GetCode(err))
		})
	}
}

func TestSplitKeepsDriveLetters(t *testing.T) {
	scheme, path := split(`C:\grid.yaml`)
	assert.Equal(t, "", scheme)
	assert.Equal(t, `C:\grid.yaml`, path)

	scheme, path = split("classpath:a/b.yaml")
	assert.Equal(t, ClasspathPrefix, scheme)
	assert.Equal(t, "a/b.yaml", path)
}
