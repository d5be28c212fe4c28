package browser

import (
	"os"
	"os/exec"
)

var chromeNames = []string{"chrome", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable"}

// wellKnownChromePaths covers systems where the browser is not on PATH.
func wellKnownChromePaths() []string {
	return []string{
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		os.Getenv("LOCALAPPDATA") + `\Google\Chrome\Application\chrome.exe`,
		`/usr/bin/google-chrome`,
		`/usr/bin/chromium-browser`,
		`/usr/bin/chromium`,
		`/snap/bin/chromium`,
		`/Applications/Google Chrome.app/Contents/MacOS/Google Chrome`,
		`/Applications/Chromium.app/Contents/MacOS/Chromium`,
	}
}

// FindChrome locates a Chrome or Chromium binary, preferring PATH.
func FindChrome() (string, bool) {
	for _, name := range chromeNames {
		if path, err := exec.LookPath(name); err == nil && path != "" {
			return path, true
		}
	}
	for _, path := range wellKnownChromePaths() {
		if path == "" {
			continue
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}
