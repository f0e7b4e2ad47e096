package headless

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
)

// ErrBrowserUnavailable is returned when no browser executable can be found
// or launched.
var ErrBrowserUnavailable = errors.New("browser unavailable")

// Discovery locates browser and driver executables. Explicit overrides
// always win; the search lists are only consulted without one.
type Discovery struct {
	LookPath     func(file string) (string, error)
	Stat         func(name string) (fs.FileInfo, error)
	BrowserNames []string
	BrowserPaths []string
	DriverNames  []string
	DriverPaths  []string
}

// DefaultDiscovery searches PATH and the usual install locations.
func DefaultDiscovery() Discovery {
	return Discovery{
		LookPath: exec.LookPath,
		Stat:     os.Stat,
		BrowserNames: []string{
			"google-chrome",
			"google-chrome-stable",
			"chromium",
			"chromium-browser",
			"chrome",
			"headless-shell",
		},
		BrowserPaths: []string{
			"/usr/bin/google-chrome",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
			"/opt/google/chrome/chrome",
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		},
		DriverNames: []string{"chromedriver"},
		DriverPaths: []string{
			"/usr/bin/chromedriver",
			"/usr/local/bin/chromedriver",
			"/usr/lib/chromium/chromedriver",
		},
	}
}

// ResolveBrowser returns the browser executable to launch.
func (d Discovery) ResolveBrowser(override string) (string, error) {
	return d.resolve("browser_binary_path", override, d.BrowserNames, d.BrowserPaths)
}

// ResolveDriver returns the driver executable, if any.
func (d Discovery) ResolveDriver(override string) (string, error) {
	return d.resolve("driver_binary_path", override, d.DriverNames, d.DriverPaths)
}

func (d Discovery) resolve(key, override string, names, paths []string) (string, error) {
	override = strings.TrimSpace(override)
	if override != "" {
		if path, ok := d.locate(override); ok {
			return path, nil
		}
		return "", fmt.Errorf("%w: %s %q not found", ErrBrowserUnavailable, key, override)
	}
	for _, name := range names {
		if d.LookPath == nil {
			break
		}
		if path, err := d.LookPath(name); err == nil {
			return path, nil
		}
	}
	for _, candidate := range paths {
		if d.isFile(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no %s configured and none discovered", ErrBrowserUnavailable, key)
}

func (d Discovery) locate(value string) (string, bool) {
	if strings.ContainsAny(value, `/\`) {
		return value, d.isFile(value)
	}
	if d.LookPath == nil {
		return "", false
	}
	path, err := d.LookPath(value)
	return path, err == nil
}

func (d Discovery) isFile(path string) bool {
	if d.Stat == nil {
		return false
	}
	info, err := d.Stat(path)
	return err == nil && !info.IsDir()
}
