// Groups the scheduler's configurable constants, mirroring the teacher's
// convention of small, purpose-named config structs (sim/config.go).

package scheduler

// SchedulerConfig groups admission/priority/starvation knobs. Zero-value
// fields listed as "default" below are filled in by NewSchedulerConfig, not
// by this struct's zero value — callers constructing one by hand should use
// NewSchedulerConfig and then override.
type SchedulerConfig struct {
	MaxNumSeqs         int64 // cap on concurrent RUNNING sequences
	MaxNumBatchedToken int64 // padded-batch token ceiling
	MaxPaddings        int64 // tolerated padding waste in a prompt batch
	MaxModelLen        int64 // hard per-prompt token cap
	MaxBatchSize       int64 // used by skip-join profile lookup
	MaxLoRAs           int   // adapter slot count; 0 disables adapter gating

	BaseQuantumMicros   int64 // default 10_000 (10ms)
	Threshold           int64 // default 2, geometric growth per priority level
	StarvationThreshold int64 // default 3_000_000 (3s), microseconds
	StarvationPeriod    int64 // default 1000 iterations
	NumQueuesForPredict int   // default 2
	UseSkipJoin         bool  // default false

	// BlockSize, NumGPUBlocks, NumCPUBlocks, SlidingWindow, and
	// EnableCaching are not consulted by the scheduler core itself (spec §6:
	// "forwarded to block manager") — they size and configure whichever
	// BlockManager the caller wires in. Carried here only so a single
	// ConfigBundle file can describe an entire deployment.
	BlockSize     int
	NumGPUBlocks  int
	NumCPUBlocks  int
	SlidingWindow int  // 0 disables sliding-window attention
	EnableCaching bool // enables prefix-cache reuse in the block manager

	// ProactiveOffloading and NumMinFreeBlocksThreshold are policy knobs the
	// spec documents as currently influencing "only operational tuning in
	// external collaborators" (spec §6) — the scheduler core reads neither.
	ProactiveOffloading       bool
	NumMinFreeBlocksThreshold int
}

// PromptLimit returns min(MaxModelLen, MaxNumBatchedToken), the hard cutoff
// beyond which a prompt is rejected rather than queued.
func (c *SchedulerConfig) PromptLimit() int64 {
	if c.MaxModelLen < c.MaxNumBatchedToken {
		return c.MaxModelLen
	}
	return c.MaxNumBatchedToken
}

// QuantumFor returns the service-time budget at a given priority level:
// BaseQuantumMicros * Threshold^priority. Uses repeated integer
// multiplication rather than math.Pow to avoid floating-point drift across
// many demotions.
func (c *SchedulerConfig) QuantumFor(priority int) int64 {
	q := c.BaseQuantumMicros
	for i := 0; i < priority; i++ {
		q *= c.Threshold
	}
	return q
}

// NewSchedulerConfig returns a SchedulerConfig with the spec's documented
// defaults, overriding MaxNumSeqs/MaxNumBatchedToken/MaxModelLen/MaxPaddings
// with the given values (there is no sane global default for these — they
// depend on the deployment's GPU and model).
func NewSchedulerConfig(maxNumSeqs, maxNumBatchedTokens, maxModelLen, maxPaddings int64) *SchedulerConfig {
	return &SchedulerConfig{
		MaxNumSeqs:          maxNumSeqs,
		MaxNumBatchedToken:  maxNumBatchedTokens,
		MaxPaddings:         maxPaddings,
		MaxModelLen:         maxModelLen,
		MaxBatchSize:        maxNumSeqs,
		MaxLoRAs:            0,
		BaseQuantumMicros:   10_000,
		Threshold:           2,
		StarvationThreshold: 3_000_000,
		StarvationPeriod:    1000,
		NumQueuesForPredict: 2,
		UseSkipJoin:         false,
		BlockSize:           16,
		NumGPUBlocks:        512,
		NumCPUBlocks:        1024,
	}
}
