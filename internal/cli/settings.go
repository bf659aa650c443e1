package cli

import (
	"github.com/spf13/viper"

	"github.com/abdnh/subs2srs-context/internal/neighbor"
)

// Settings is the effective configuration after flags, environment and
// config file have been merged
type Settings struct {
	CollectionPath string
	Profile        string
	BaseDir        string

	SequenceField string
	MarkerField   string
	AudioField    string
	Mode          string

	LogLevel  string
	LogFormat string

	Workers       int
	PlayerCommand string
	OutputFormat  string
}

// LoadSettings reads the settings from viper
func LoadSettings() *Settings {
	return &Settings{
		CollectionPath: viper.GetString("collection.path"),
		Profile:        viper.GetString("collection.profile"),
		BaseDir:        viper.GetString("collection.base_dir"),
		SequenceField:  viper.GetString("fields.sequence"),
		MarkerField:    viper.GetString("fields.marker"),
		AudioField:     viper.GetString("fields.audio"),
		Mode:           viper.GetString("resolver.mode"),
		LogLevel:       viper.GetString("log.level"),
		LogFormat:      viper.GetString("log.format"),
		Workers:        viper.GetInt("audit.workers"),
		PlayerCommand:  viper.GetString("playback.command"),
		OutputFormat:   viper.GetString("output.format"),
	}
}

// ResolverConfig builds the resolver configuration. Unset fields fall
// back to the subs2srs defaults, except the marker field which may be
// empty on purpose.
func (s *Settings) ResolverConfig() (*neighbor.Config, error) {
	config := neighbor.DefaultConfig()
	if s.SequenceField != "" {
		config.SequenceField = s.SequenceField
	}
	config.MarkerField = s.MarkerField
	if s.AudioField != "" {
		config.AudioField = s.AudioField
	}
	if s.Mode != "" {
		mode, err := neighbor.ParseMode(s.Mode)
		if err != nil {
			return nil, err
		}
		config.Mode = mode
	}
	return config, nil
}
