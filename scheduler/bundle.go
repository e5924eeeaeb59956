// Loads a SchedulerConfig from YAML. Adapted from the teacher's
// PolicyBundle/LoadPolicyBundle (sim/bundle.go): strict decoding so a typo
// in a config file fails loudly instead of silently falling back to a
// zero-value default.

package scheduler

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigBundle is the on-disk YAML shape for a SchedulerConfig. Pointer
// fields are omittable; LoadConfigBundle fills defaults for anything left
// unset via NewSchedulerConfig before applying overrides.
type ConfigBundle struct {
	MaxNumSeqs          *int64 `yaml:"max_num_seqs"`
	MaxNumBatchedTokens *int64 `yaml:"max_num_batched_tokens"`
	MaxModelLen         *int64 `yaml:"max_model_len"`
	MaxPaddings         *int64 `yaml:"max_paddings"`
	MaxLoRAs            *int   `yaml:"max_loras"`
	UseSkipJoin         *bool  `yaml:"use_skip_join"`

	BlockSize                 *int  `yaml:"block_size"`
	NumGPUBlocks              *int  `yaml:"num_gpu_blocks"`
	NumCPUBlocks              *int  `yaml:"num_cpu_blocks"`
	SlidingWindow             *int  `yaml:"sliding_window"`
	EnableCaching             *bool `yaml:"enable_caching"`
	ProactiveOffloading       *bool `yaml:"proactive_offloading"`
	NumMinFreeBlocksThreshold *int  `yaml:"num_min_free_blocks_threshold"`
}

// LoadConfigBundle reads and strictly parses a YAML scheduler config file,
// then merges it onto the spec's documented defaults.
func LoadConfigBundle(path string) (*SchedulerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scheduler config: %w", err)
	}
	var bundle ConfigBundle
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&bundle); err != nil {
		return nil, fmt.Errorf("parsing scheduler config: %w", err)
	}

	cfg := NewSchedulerConfig(256, 2048, 2048, 0)
	if bundle.MaxNumSeqs != nil {
		cfg.MaxNumSeqs = *bundle.MaxNumSeqs
	}
	if bundle.MaxNumBatchedTokens != nil {
		cfg.MaxNumBatchedToken = *bundle.MaxNumBatchedTokens
	}
	if bundle.MaxModelLen != nil {
		cfg.MaxModelLen = *bundle.MaxModelLen
	}
	if bundle.MaxPaddings != nil {
		cfg.MaxPaddings = *bundle.MaxPaddings
	}
	if bundle.MaxLoRAs != nil {
		cfg.MaxLoRAs = *bundle.MaxLoRAs
	}
	if bundle.UseSkipJoin != nil {
		cfg.UseSkipJoin = *bundle.UseSkipJoin
	}
	if bundle.BlockSize != nil {
		cfg.BlockSize = *bundle.BlockSize
	}
	if bundle.NumGPUBlocks != nil {
		cfg.NumGPUBlocks = *bundle.NumGPUBlocks
	}
	if bundle.NumCPUBlocks != nil {
		cfg.NumCPUBlocks = *bundle.NumCPUBlocks
	}
	if bundle.SlidingWindow != nil {
		cfg.SlidingWindow = *bundle.SlidingWindow
	}
	if bundle.EnableCaching != nil {
		cfg.EnableCaching = *bundle.EnableCaching
	}
	if bundle.ProactiveOffloading != nil {
		cfg.ProactiveOffloading = *bundle.ProactiveOffloading
	}
	if bundle.NumMinFreeBlocksThreshold != nil {
		cfg.NumMinFreeBlocksThreshold = *bundle.NumMinFreeBlocksThreshold
	}
	return cfg, nil
}
