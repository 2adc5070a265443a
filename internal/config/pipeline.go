package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Pipeline is the declarative description of one pipeline, read from a
// TOML file kept next to the project under test.
type Pipeline struct {
	Runtime RuntimeMatrix  `toml:"runtime"`
	Fetch   FetchSection   `toml:"fetch"`
	Install InstallSection `toml:"install"`
	CovTest CovTestSection `toml:"test"`
	Upload  UploadSection  `toml:"upload"`
}

// RuntimeMatrix enumerates interpreter versions. Runs use the first
// entry; the list exists so pipeline files stay matrix-shaped.
type RuntimeMatrix struct {
	Versions []string `toml:"versions"`
}

type FetchSection struct {
	RepoUrl string `toml:"repo_url"`
	Ref     string `toml:"ref"`
	Depth   int    `toml:"depth"`
	Lfs     bool   `toml:"lfs"`
}

type InstallSection struct {
	// Target is installed in editable mode. Defaults to ".".
	Target string `toml:"target"`
	// Tools are installed after the editable install, unpinned.
	Tools []string `toml:"tools"`
}

type CovTestSection struct {
	CovConfigPath string `toml:"cov_config_path"`
	CovScope      string `toml:"cov_scope"`
}

type UploadSection struct {
	Enabled     bool `toml:"enabled"`
	FailOnError bool `toml:"fail_on_error"`
	Verbose     bool `toml:"verbose"`
}

func ReadPipeline(path string) (*Pipeline, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file %s: %w", path, err)
	}
	return ParsePipeline(body)
}

func ParsePipeline(body []byte) (*Pipeline, error) {
	p := &Pipeline{}
	if err := toml.Unmarshal(body, p); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline file: %w", err)
	}

	if p.Install.Target == "" {
		p.Install.Target = "."
	}
	if p.CovTest.CovScope == "" {
		p.CovTest.CovScope = "./"
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks fields a run cannot proceed without. Configs built
// from queue requests go through it too, not just parsed files.
func (p *Pipeline) Validate() error {
	if len(p.Runtime.Versions) == 0 {
		return fmt.Errorf("pipeline lists no runtime versions")
	}
	for _, v := range p.Runtime.Versions {
		if v == "" {
			return fmt.Errorf("pipeline lists an empty runtime version")
		}
	}
	if p.CovTest.CovConfigPath == "" {
		return fmt.Errorf("pipeline does not set test.cov_config_path")
	}
	return nil
}

// Version returns the interpreter version the run uses.
func (p *Pipeline) Version() string {
	return p.Runtime.Versions[0]
}
