package authz

import (
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Mode represents the global enforcement mode.
type Mode string

const (
	ModeDisabled Mode = "disabled"
	ModeShadow   Mode = "shadow"
	ModeEnforce  Mode = "enforce"
)

// FlagProvider supplies the current enforcement mode.
type FlagProvider interface {
	Mode() Mode
}

type staticFlagProvider struct {
	mode Mode
}

func (s staticFlagProvider) Mode() Mode {
	return s.mode
}

// StaticMode returns a provider that always answers mode.
func StaticMode(mode Mode) FlagProvider {
	return staticFlagProvider{mode: ParseMode(string(mode))}
}

// FileFlagProvider reads the mode from a YAML file of the form `mode: shadow`
// on every call, so operators can flip enforcement without a restart. The
// last good value is kept when the file becomes unreadable.
type FileFlagProvider struct {
	path     string
	fallback Mode
	lastMode Mode
	mu       sync.Mutex
}

func NewFileFlagProvider(path string, fallback Mode) FlagProvider {
	return &FileFlagProvider{
		path:     path,
		fallback: ParseMode(string(fallback)),
	}
}

func (p *FileFlagProvider) Mode() Mode {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lastMode == "" {
		p.lastMode = p.fallback
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return p.lastMode
	}
	var cfg struct {
		Mode string `yaml:"mode"`
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil || cfg.Mode == "" {
		return p.lastMode
	}
	p.lastMode = ParseMode(cfg.Mode)
	return p.lastMode
}

// ParseMode defaults to enforce for anything unrecognized.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ModeDisabled):
		return ModeDisabled
	case string(ModeShadow):
		return ModeShadow
	default:
		return ModeEnforce
	}
}
