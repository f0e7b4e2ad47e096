package headless

import (
	"errors"
	"io/fs"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeFileInfo struct {
	name string
	dir  bool
}

func (f fakeFileInfo) Name() string       { return f.name }
func (f fakeFileInfo) Size() int64        { return 0 }
func (f fakeFileInfo) Mode() fs.FileMode  { return 0o755 }
func (f fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (f fakeFileInfo) IsDir() bool        { return f.dir }
func (f fakeFileInfo) Sys() any           { return nil }

func fakeDiscovery(onPath map[string]string, files map[string]bool) Discovery {
	return Discovery{
		LookPath: func(file string) (string, error) {
			if p, ok := onPath[file]; ok {
				return p, nil
			}
			return "", exec.ErrNotFound
		},
		Stat: func(name string) (fs.FileInfo, error) {
			dir, ok := files[name]
			if !ok {
				return nil, fs.ErrNotExist
			}
			return fakeFileInfo{name: name, dir: dir}, nil
		},
		BrowserNames: []string{"google-chrome", "chromium"},
		BrowserPaths: []string{"/opt/chrome/chrome", "/usr/bin/chromium"},
		DriverNames:  []string{"chromedriver"},
		DriverPaths:  []string{"/usr/bin/chromedriver"},
	}
}

func TestResolveBrowserPrefersOverride(t *testing.T) {
	t.Parallel()

	d := fakeDiscovery(map[string]string{"chromium": "/usr/bin/chromium"}, map[string]bool{"/custom/chrome": false})
	path, err := d.ResolveBrowser("/custom/chrome")
	require.NoError(t, err)
	require.Equal(t, "/custom/chrome", path)
}

func TestResolveBrowserOverrideMissing(t *testing.T) {
	t.Parallel()

	d := fakeDiscovery(map[string]string{"chromium": "/usr/bin/chromium"}, nil)
	_, err := d.ResolveBrowser("/missing/chrome")
	require.ErrorIs(t, err, ErrBrowserUnavailable)
	require.Contains(t, err.Error(), "/missing/chrome")
}

func TestResolveBrowserOverrideDirectoryRejected(t *testing.T) {
	t.Parallel()

	d := fakeDiscovery(nil, map[string]bool{"/opt/chrome": true})
	_, err := d.ResolveBrowser("/opt/chrome")
	require.ErrorIs(t, err, ErrBrowserUnavailable)
}

func TestResolveBrowserBareNameUsesPath(t *testing.T) {
	t.Parallel()

	d := fakeDiscovery(map[string]string{"chrome-beta": "/usr/local/bin/chrome-beta"}, nil)
	path, err := d.ResolveBrowser("chrome-beta")
	require.NoError(t, err)
	require.Equal(t, "/usr/local/bin/chrome-beta", path)
}

func TestResolveBrowserSearchOrder(t *testing.T) {
	t.Parallel()

	d := fakeDiscovery(map[string]string{"chromium": "/snap/bin/chromium"}, map[string]bool{"/opt/chrome/chrome": false})
	path, err := d.ResolveBrowser("")
	require.NoError(t, err)
	require.Equal(t, "/snap/bin/chromium", path, "PATH names win over well-known locations")

	d = fakeDiscovery(nil, map[string]bool{"/usr/bin/chromium": false})
	path, err = d.ResolveBrowser("  ")
	require.NoError(t, err)
	require.Equal(t, "/usr/bin/chromium", path)
}

func TestResolveNothingFound(t *testing.T) {
	t.Parallel()

	d := fakeDiscovery(nil, nil)
	_, err := d.ResolveBrowser("")
	require.True(t, errors.Is(err, ErrBrowserUnavailable))
	_, err = d.ResolveDriver("")
	require.ErrorIs(t, err, ErrBrowserUnavailable)
}

func TestResolveDriver(t *testing.T) {
	t.Parallel()

	d := fakeDiscovery(nil, map[string]bool{"/usr/bin/chromedriver": false})
	path, err := d.ResolveDriver("")
	require.NoError(t, err)
	require.Equal(t, "/usr/bin/chromedriver", path)
}
