package config

// Diff describes what changed between two configs. Only the log level can be
// hot-reloaded; everything else requires a restart and is surfaced so the
// operator can be warned.
type Diff struct {
	LogLevelChanged bool
	ServerChanged   bool // listen address, public URL, or TLS
	ProviderChanged bool
	AudioChanged    bool
}

// Any reports whether the diff contains any change at all.
func (d Diff) Any() bool {
	return d.LogLevelChanged || d.ServerChanged || d.ProviderChanged || d.AudioChanged
}

// Compare computes the [Diff] between two configs. Both arguments must be
// non-nil.
func Compare(old, new *Config) Diff {
	var d Diff

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
	}
	if old.Server.ListenAddr != new.Server.ListenAddr ||
		old.Server.PublicURL != new.Server.PublicURL ||
		!tlsEqual(old.Server.TLS, new.Server.TLS) {
		d.ServerChanged = true
	}
	if old.Provider != new.Provider {
		d.ProviderChanged = true
	}
	if old.Audio != new.Audio {
		d.AudioChanged = true
	}
	return d
}

func tlsEqual(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
