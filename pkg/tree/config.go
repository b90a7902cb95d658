// Copyright 2025 Certen Labs
//
// Tree Configuration — the fixed, per-chain parameters of the curve
// tree. Production chains MUST use DefaultConfig; LoadConfig exists only
// to let devnets and test fixtures exercise non-default branching
// factors, mirroring the override-file pattern the teacher uses for
// anchor target configuration (pkg/config/anchor_config.go).

package tree

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/certen-labs/curvetree/pkg/group"
)

// Config holds the chain-constant tree parameters.
type Config struct {
	// LeafBranchWidth is the number of Output Tuples absorbed by one
	// leaf-layer commitment before it closes.
	LeafBranchWidth uint64 `yaml:"leaf_branch_width"`
	// NodeBranchWidth is the number of children absorbed by one
	// higher-layer node before it closes.
	NodeBranchWidth uint64 `yaml:"node_branch_width"`
	// HashInitDomain seeds HASH_INIT, the empty-tree commitment.
	HashInitDomain string `yaml:"hash_init_domain"`
}

// DefaultLeafBranchWidth, DefaultNodeBranchWidth are the compiled-in
// production defaults.
const (
	DefaultLeafBranchWidth = 38
	DefaultNodeBranchWidth = 16
	defaultHashInitDomain  = "curvetree-hash-init-v1"

	// MaxDepth bounds TreeFull: a tree may grow at most this many
	// non-leaf layers above the leaf layer.
	MaxDepth = 24
)

// DefaultConfig returns the compiled-in production parameters.
func DefaultConfig() *Config {
	return &Config{
		LeafBranchWidth: DefaultLeafBranchWidth,
		NodeBranchWidth: DefaultNodeBranchWidth,
		HashInitDomain:  defaultHashInitDomain,
	}
}

// LoadConfig reads a YAML override file for a devnet or fixture. Any
// field left unset in the file falls back to the production default.
// Loudly logs when an override is in effect, since a non-default
// branching factor changes the tree's on-chain meaning.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tree: read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("tree: parse config %s: %w", path, err)
	}
	if cfg.LeafBranchWidth == 0 {
		cfg.LeafBranchWidth = DefaultLeafBranchWidth
	}
	if cfg.NodeBranchWidth == 0 {
		cfg.NodeBranchWidth = DefaultNodeBranchWidth
	}
	if cfg.HashInitDomain == "" {
		cfg.HashInitDomain = defaultHashInitDomain
	}

	if cfg.LeafBranchWidth != DefaultLeafBranchWidth || cfg.NodeBranchWidth != DefaultNodeBranchWidth {
		log.Printf("WARNING: curvetree config %s overrides production branch widths (leaf=%d node=%d) — do not deploy this to mainnet", path, cfg.LeafBranchWidth, cfg.NodeBranchWidth)
	}

	return cfg, nil
}

// HashInit returns the fixed "empty tree" seed point, derived
// deterministically from HashInitDomain.
func (c *Config) HashInit() group.Point {
	return group.HashToPoint([]byte(c.HashInitDomain))
}
