package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/ini.v1"
)

// FileName is the name of the configuration file searched for when no
// path is given.
const FileName = "rpmostree-toolbox.ini"

// DefaultProfile is the section holding the defaults of every profile.
const DefaultProfile = "DEFAULT"

// Built-in values, overridden by the [DEFAULT] section of the file.
const builtinDefaults = `
compose_tool = rpm-ostree
ostree_tool = ostree
staging_key = rpmostree-toolbox.staging
history_days = 14
`

// Derived paths, applied when the profile does not set them and every key
// they derive from is known.
var derivedDefaults = []struct {
	key      string
	from     []string
	template string
}{
	{key: "tree_file", from: []string{"pkgdatadir", "os_name", "tree_name"}, template: "%(pkgdatadir)s/%(os_name)s-%(tree_name)s.json"},
	{key: "ostree_repo", from: []string{"outputdir"}, template: "%(outputdir)s/repo"},
	{key: "rpmostree_cache_dir", from: []string{"workdir"}, template: "%(workdir)s/cache"},
}

// Config is a parsed configuration file: a [DEFAULT] section and any number
// of named profiles.
type Config struct {
	// Path is the file the configuration was read from, "" for built-in defaults.
	Path string
	file *ini.File
}

// Profile is one resolved profile section.
type Profile struct {
	Name string

	OutputDir  string
	WorkDir    string
	PkgDataDir string
	OSName     string
	TreeName   string

	TreeFile    string
	OstreeRepo  string
	CacheDir    string
	StagingKey  string
	HistoryDays int
	ComposeTool string
	OstreeTool  string
}

func load(sources ...interface{}) (*ini.File, error) {
	return ini.LoadSources(ini.LoadOptions{InsensitiveKeys: true}, []byte(builtinDefaults), sources...)
}

// DefaultConfig returns a configuration holding only the built-in defaults.
func DefaultConfig() *Config {
	f, err := load()
	if err != nil {
		panic(err)
	}
	return &Config{file: f}
}

// LoadConfig loads the configuration file at path on top of the built-in
// defaults. With an empty path, ./rpmostree-toolbox.ini and then
// ~/.config/rpmostree-toolbox.ini are tried; if neither exists the
// defaults are returned.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		// Try default locations
		candidates := []string{FileName}
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			candidates = append(candidates, filepath.Join(home, ".config", FileName))
		} else if envHome := os.Getenv("HOME"); envHome != "" {
			candidates = append(candidates, filepath.Join(envHome, ".config", FileName))
		}
		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	f, err := load(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &Config{Path: path, file: f}, nil
}

// ProfileNames returns the names of the profiles defined in the file,
// excluding DEFAULT.
func (c *Config) ProfileNames() []string {
	var names []string
	for _, name := range c.file.SectionStrings() {
		if name != DefaultProfile {
			names = append(names, name)
		}
	}
	return names
}

// Profile resolves the named profile. Keys missing from the profile are
// taken from [DEFAULT], and %(key)s references are expanded against the
// profile. An empty name selects DEFAULT.
func (c *Config) Profile(name string) (*Profile, error) {
	if name == "" {
		name = DefaultProfile
	}
	if !c.file.HasSection(name) {
		return nil, fmt.Errorf("profile %q not found", name)
	}

	// Work on a copy so resolving a profile does not change the file.
	f, err := load()
	if err != nil {
		return nil, err
	}
	sec, err := f.NewSection(name)
	if err != nil {
		return nil, err
	}
	def := c.file.Section(DefaultProfile)
	src := c.file.Section(name)
	for _, k := range def.Keys() {
		if _, err := sec.NewKey(k.Name(), k.Value()); err != nil {
			return nil, err
		}
	}
	for _, k := range src.Keys() {
		if _, err := sec.NewKey(k.Name(), k.Value()); err != nil {
			return nil, err
		}
	}
	for _, d := range derivedDefaults {
		if sec.Key(d.key).Value() == "" && hasAll(sec, d.from) {
			if _, err := sec.NewKey(d.key, d.template); err != nil {
				return nil, err
			}
		}
	}

	p := &Profile{
		Name:        name,
		OutputDir:   sec.Key("outputdir").String(),
		WorkDir:     sec.Key("workdir").String(),
		PkgDataDir:  sec.Key("pkgdatadir").String(),
		OSName:      sec.Key("os_name").String(),
		TreeName:    sec.Key("tree_name").String(),
		TreeFile:    sec.Key("tree_file").String(),
		OstreeRepo:  sec.Key("ostree_repo").String(),
		CacheDir:    sec.Key("rpmostree_cache_dir").String(),
		StagingKey:  sec.Key("staging_key").String(),
		ComposeTool: sec.Key("compose_tool").String(),
		OstreeTool:  sec.Key("ostree_tool").String(),
	}
	if s := sec.Key("history_days").String(); s != "" {
		days, err := strconv.Atoi(s)
		if err != nil || days < 0 {
			return nil, fmt.Errorf("profile %q: invalid history_days %q", name, s)
		}
		p.HistoryDays = days
	}
	return p, nil
}

func hasAll(sec *ini.Section, keys []string) bool {
	for _, k := range keys {
		if sec.Key(k).Value() == "" {
			return false
		}
	}
	return true
}

// Fields returns the profile's settings in file order, for display.
func (p *Profile) Fields() [][2]string {
	return [][2]string{
		{"outputdir", p.OutputDir},
		{"workdir", p.WorkDir},
		{"pkgdatadir", p.PkgDataDir},
		{"os_name", p.OSName},
		{"tree_name", p.TreeName},
		{"tree_file", p.TreeFile},
		{"ostree_repo", p.OstreeRepo},
		{"rpmostree_cache_dir", p.CacheDir},
		{"staging_key", p.StagingKey},
		{"history_days", strconv.Itoa(p.HistoryDays)},
		{"compose_tool", p.ComposeTool},
		{"ostree_tool", p.OstreeTool},
	}
}
