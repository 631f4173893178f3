package config

import "path/filepath"

// Defaults returns a Config with workable defaults for everything except
// credentials, which have no defaults and fail validation when missing.
func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Discord: DiscordConfig{
			CommandPrefix: "!",
		},
		Elastic: ElasticConfig{
			InsecureSkipVerify: true,
			TimeoutSeconds:     30,
		},
		Journal: JournalConfig{
			Enabled: true,
			DBPath:  filepath.Join(DefaultConfigDir(), "journal.db"),
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Addr:     "127.0.0.1:9187",
			Endpoint: "/metrics",
		},
	}
}
