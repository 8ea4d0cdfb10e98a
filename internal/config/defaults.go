package config

const (
	defaultConfigPath        = "~/.config/polarconv/config.toml"
	defaultLogDir            = "~/.local/share/polarconv/logs"
	defaultStateDir          = "~/.local/share/polarconv/state"
	defaultCompression       = "zstd"
	defaultZstdLevel         = "default"
	defaultMinFreeMiB        = 0
	defaultNotifyTimeout     = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultOpenOnSuccess     = false
	defaultOverwriteExisting = false
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Convert: Convert{
			OverwriteExisting: defaultOverwriteExisting,
			Compression:       defaultCompression,
			ZstdLevel:         defaultZstdLevel,
			OpenOnSuccess:     defaultOpenOnSuccess,
			MinFreeMiB:        defaultMinFreeMiB,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
