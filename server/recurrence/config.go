package recurrence

// EngineConfig holds configuration options for the recurrence engine
type EngineConfig struct {
	// Cache configuration
	CacheEnabled bool
	CacheConfig  CacheConfig

	// MaxOccurrences caps the occurrences returned per event (0 = unlimited)
	MaxOccurrences int
}

// DefaultEngineConfig provides sensible defaults for production use
var DefaultEngineConfig = EngineConfig{
	CacheEnabled:   true,
	CacheConfig:    DefaultCacheConfig,
	MaxOccurrences: 5000,
}

// NewEngineWithConfig creates an engine from config. When caching is enabled
// decoded rules are kept in a RuleCache; call Close to stop its cleanup loop.
func NewEngineWithConfig(config EngineConfig) *Engine {
	opts := []EngineOption{
		WithExpansionOptions(ExpansionOptions{MaxOccurrences: config.MaxOccurrences}),
	}
	var cache *RuleCache
	if config.CacheEnabled {
		cache = NewRuleCache(config.CacheConfig)
		opts = append(opts, WithCodec(NewCachedCodec(NewCodec(), cache)))
	}
	e := NewEngine(opts...)
	e.cache = cache
	return e
}
