package cli

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile        string
	CollectionPath string
	Profile        string
	BaseDir        string
	OutputFormat   string
	LogLevel       string
	LogFormat      string

	// Resolver flags
	SequenceField string
	MarkerField   string
	AudioField    string
	Mode          string

	// Playback flags
	PlayerCommand string
	Side          string
	File          string

	// Audit flags
	Notetype string
	Workers  int
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		OutputFormat:  "text",
		LogLevel:      "warn",
		LogFormat:     "auto",
		SequenceField: "Notes",
		MarkerField:   "SequenceMarker",
		AudioField:    "Audio",
		Mode:          "sequence",
		Side:          "next",
		Workers:       4,
	}
}
