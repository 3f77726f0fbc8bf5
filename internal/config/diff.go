package config

// ConfigDiff describes what changed between two configs. Only fields that
// can be safely hot-reloaded without restarting active sessions are tracked.
type ConfigDiff struct {
	LogLevelChanged    bool
	NewLogLevel        LogLevel
	TranslatorsChanged bool
	ChangedTranslators []string
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	seen := make(map[string]bool, len(old.Translators)+len(new.Translators))
	for name, oldEntry := range old.Translators {
		newEntry, ok := new.Translators[name]
		if !ok || !sameEntry(oldEntry, newEntry) {
			d.ChangedTranslators = append(d.ChangedTranslators, name)
			d.TranslatorsChanged = true
		}
		seen[name] = true
	}
	for name := range new.Translators {
		if !seen[name] {
			d.ChangedTranslators = append(d.ChangedTranslators, name)
			d.TranslatorsChanged = true
		}
	}

	return d
}

// sameEntry compares the fields of ProviderEntry that matter for hot-reload
// decisions. Options is excluded from the comparison since it is a map and
// is not meaningfully order-comparable for this purpose.
func sameEntry(a, b ProviderEntry) bool {
	return a.Name == b.Name && a.APIKey == b.APIKey && a.APISecret == b.APISecret &&
		a.BaseURL == b.BaseURL && a.Model == b.Model
}
