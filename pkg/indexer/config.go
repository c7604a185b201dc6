package indexer

// Config controls the search indexer job.
type Config struct {
	Enabled bool   `env:"SEARCH_INDEXER_ENABLED" envDefault:"true"`
	Cron    string `env:"SEARCH_INDEXER_CRON" envDefault:"*/2 * * * * *"` // Cron uses six fields, seconds first.
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{Enabled: true, Cron: "*/2 * * * * *"}
}
