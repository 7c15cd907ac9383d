package grainfield

import (
	"log/slog"
	"time"

	"github.com/cbegin/grainfield-go/internal/sched"
)

// Backend selects the live output driver used by Play.
type Backend string

const (
	BackendEbiten Backend = "ebiten"
	BackendBeep   Backend = "beep"
)

type EngineOption func(*engineConfig)

type engineConfig struct {
	blockSize     int
	maxVoices     int
	smoothSteal   int
	latePolicy    sched.LatePolicy
	logger        *slog.Logger
	cache         *WindowCache
	eventBuffer   int
	queueCapacity int
	delay         *DelayParams
	reverb        *ReverbParams
	limiter       *LimiterParams
	autoPan       *AutoPanParams
	backend       Backend
	outputBuffer  time.Duration
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		blockSize:     256,
		maxVoices:     32,
		latePolicy:    sched.LateDrop,
		eventBuffer:   64,
		queueCapacity: 1024,
		backend:       BackendEbiten,
	}
}

// WithBlockSize sets the number of frames rendered per scheduler pass.
// Events land on exact samples regardless; smaller blocks only shorten the
// window in which a just-scheduled event can still be on time.
func WithBlockSize(frames int) EngineOption {
	return func(cfg *engineConfig) {
		cfg.blockSize = frames
	}
}

// WithMaxVoices caps polyphony. The oldest voice is stolen beyond it.
func WithMaxVoices(n int) EngineOption {
	return func(cfg *engineConfig) {
		cfg.maxVoices = n
	}
}

// WithSmoothSteal fades stolen voices out over fadeSamples frames instead of
// cutting them. Zero restores hard stealing.
func WithSmoothSteal(fadeSamples int) EngineOption {
	return func(cfg *engineConfig) {
		cfg.smoothSteal = fadeSamples
	}
}

func WithLatePolicy(p LatePolicy) EngineOption {
	return func(cfg *engineConfig) {
		cfg.latePolicy = p
	}
}

func WithLogger(l *slog.Logger) EngineOption {
	return func(cfg *engineConfig) {
		cfg.logger = l
	}
}

// WithWindowCache shares a window cache between engines.
func WithWindowCache(c *WindowCache) EngineOption {
	return func(cfg *engineConfig) {
		cfg.cache = c
	}
}

// WithEventBuffer sets the capacity of channels returned by Watch.
func WithEventBuffer(n int) EngineOption {
	return func(cfg *engineConfig) {
		cfg.eventBuffer = n
	}
}

// WithQueueCapacity presizes the scheduler's ordered queue.
func WithQueueCapacity(n int) EngineOption {
	return func(cfg *engineConfig) {
		cfg.queueCapacity = n
	}
}

func WithDelay(p DelayParams) EngineOption {
	return func(cfg *engineConfig) {
		cfg.delay = &p
	}
}

func WithReverb(p ReverbParams) EngineOption {
	return func(cfg *engineConfig) {
		cfg.reverb = &p
	}
}

func WithLimiter(p LimiterParams) EngineOption {
	return func(cfg *engineConfig) {
		cfg.limiter = &p
	}
}

// WithAutoPan sweeps the mixed output across the stereo field. It runs
// after delay and reverb, before the limiter.
func WithAutoPan(p AutoPanParams) EngineOption {
	return func(cfg *engineConfig) {
		cfg.autoPan = &p
	}
}

// WithBackend picks the driver Play uses. bufferSize of zero keeps the
// driver's default.
func WithBackend(b Backend, bufferSize time.Duration) EngineOption {
	return func(cfg *engineConfig) {
		cfg.backend = b
		cfg.outputBuffer = bufferSize
	}
}
