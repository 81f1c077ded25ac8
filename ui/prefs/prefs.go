// Package prefs provides JSON-based application preferences.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

const prefsFile = "preferences.json"

const (
	keyLastImageDir  = "last_image_dir"
	keyLastExportDir = "last_export_dir"
	keyWindowWidth   = "window_width"
	keyWindowHeight  = "window_height"
	keyZoom          = "zoom"
	keyAsyncNotify   = "async_notify"
)

// Prefs stores application preferences as a key-value map.
type Prefs struct {
	mu     sync.RWMutex
	values map[string]interface{}
	path   string
}

// Load reads preferences from ~/.config/image-selector/preferences.json.
// Returns a Prefs with defaults if the file doesn't exist.
func Load() *Prefs {
	p := &Prefs{
		values: make(map[string]interface{}),
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	dir := filepath.Join(configDir, "image-selector")
	p.path = filepath.Join(dir, prefsFile)

	data, err := os.ReadFile(p.path)
	if err != nil {
		return p
	}
	_ = json.Unmarshal(data, &p.values)
	return p
}

// Save writes preferences to disk.
func (p *Prefs) Save() error {
	p.mu.RLock()
	data, err := json.MarshalIndent(p.values, "", "  ")
	p.mu.RUnlock()
	if err != nil {
		return err
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o644)
}

// LastImageDir returns the directory of the last opened image.
func (p *Prefs) LastImageDir() string {
	return p.getString(keyLastImageDir)
}

// SetLastImageDir stores the directory of the last opened image.
func (p *Prefs) SetLastImageDir(dir string) {
	p.setString(keyLastImageDir, dir)
}

// LastExportDir returns the directory of the last export.
func (p *Prefs) LastExportDir() string {
	return p.getString(keyLastExportDir)
}

// SetLastExportDir stores the directory of the last export.
func (p *Prefs) SetLastExportDir(dir string) {
	p.setString(keyLastExportDir, dir)
}

// WindowSize returns the saved window size, or (0,0) if not set.
func (p *Prefs) WindowSize() (width, height float64) {
	return p.getFloat(keyWindowWidth), p.getFloat(keyWindowHeight)
}

// SetWindowSize stores the window size.
func (p *Prefs) SetWindowSize(width, height float64) {
	p.mu.Lock()
	p.values[keyWindowWidth] = width
	p.values[keyWindowHeight] = height
	p.mu.Unlock()
}

// Zoom returns the saved canvas zoom factor, defaulting to 1.
func (p *Prefs) Zoom() float64 {
	if z := p.getFloat(keyZoom); z > 0 {
		return z
	}
	return 1
}

// SetZoom stores the canvas zoom factor.
func (p *Prefs) SetZoom(zoom float64) {
	p.mu.Lock()
	p.values[keyZoom] = zoom
	p.mu.Unlock()
}

// AsyncNotify returns whether model notifications use the dedicated
// consumer goroutine.
func (p *Prefs) AsyncNotify() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.values[keyAsyncNotify]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// SetAsyncNotify stores the notification delivery mode.
func (p *Prefs) SetAsyncNotify(async bool) {
	p.mu.Lock()
	p.values[keyAsyncNotify] = async
	p.mu.Unlock()
}

func (p *Prefs) getString(key string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (p *Prefs) setString(key, val string) {
	p.mu.Lock()
	p.values[key] = val
	p.mu.Unlock()
}

func (p *Prefs) getFloat(key string) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.values[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return 0
}
