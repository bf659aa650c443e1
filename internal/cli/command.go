package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/abdnh/subs2srs-context/internal"
	"github.com/abdnh/subs2srs-context/internal/anki"
	"github.com/abdnh/subs2srs-context/internal/logging"
)

// App runs the operations behind the subcommands
type App interface {
	ShowContext(ctx context.Context, id anki.NoteID) error
	ShowNeighbors(ctx context.Context, id anki.NoteID) error
	Play(ctx context.Context, id anki.NoteID, side string) error
	PlayFile(ctx context.Context, filename string) error
	Audit(ctx context.Context, notetype string) error
	HandleMessage(ctx context.Context, raw string) error
	ListProfiles(ctx context.Context) error
	Close() error
}

// AppFactory builds the App once configuration has been loaded
type AppFactory func(settings *Settings) (App, error)

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags, newApp AppFactory) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "subs2srs-context",
		Short: "Neighbor audio for subs2srs Anki notes",
		Long: `subs2srs-context finds the notes before and after a subs2srs sentence
note in an Anki collection and plays their audio, so a line of dialogue
can be heard in context.

Notes are ordered by their "<episode>_<sequence>" field (Notes by default)
and grouped by notetype and the optional SequenceMarker field.

Examples:
  subs2srs-context context 1700000000123          # Show a note's position and neighbors
  subs2srs-context play 1700000000123 --side prev # Play the previous line
  subs2srs-context audit --notetype Sentence      # Check how well sequences link up
  subs2srs-context profiles                       # List Anki profiles`,
		Version:       internal.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(viper.GetString("log.level"), viper.GetString("log.format"), os.Stderr)
		},
	}

	setupFlags(rootCmd, flags)

	run := func(op func(ctx context.Context, app App, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			app, err := newApp(LoadSettings())
			if err != nil {
				return err
			}
			defer app.Close()
			return op(cmd.Context(), app, args)
		}
	}

	contextCmd := &cobra.Command{
		Use:   "context <note-id>",
		Short: "Show the sequence position and neighbors of a note",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, app App, args []string) error {
			id, err := ParseNoteID(args[0])
			if err != nil {
				return err
			}
			return app.ShowContext(ctx, id)
		}),
	}

	neighborsCmd := &cobra.Command{
		Use:   "neighbors <note-id>",
		Short: "Show the previous and next audio of a note",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, app App, args []string) error {
			id, err := ParseNoteID(args[0])
			if err != nil {
				return err
			}
			return app.ShowNeighbors(ctx, id)
		}),
	}

	playCmd := &cobra.Command{
		Use:   "play [note-id]",
		Short: "Play the audio of a neighbor, or a media file with --file",
		Args:  cobra.MaximumNArgs(1),
		RunE: run(func(ctx context.Context, app App, args []string) error {
			if flags.File != "" {
				return app.PlayFile(ctx, flags.File)
			}
			if len(args) == 0 {
				return fmt.Errorf("play needs a note ID or --file")
			}
			id, err := ParseNoteID(args[0])
			if err != nil {
				return err
			}
			side, err := ParseSide(flags.Side)
			if err != nil {
				return err
			}
			return app.Play(ctx, id, side)
		}),
	}
	playCmd.Flags().StringVar(&flags.Side, "side", flags.Side, "Neighbor to play: previous (prev) or next")
	playCmd.Flags().StringVar(&flags.File, "file", "", "Play a file from the collection's media folder")

	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Resolve every note and report how sequences link up",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, app App, args []string) error {
			return app.Audit(ctx, flags.Notetype)
		}),
	}
	auditCmd.Flags().StringVar(&flags.Notetype, "notetype", "", "Only audit notes of this notetype")
	auditCmd.Flags().IntVar(&flags.Workers, "workers", flags.Workers, "Concurrent resolutions")
	viper.BindPFlag("audit.workers", auditCmd.Flags().Lookup("workers"))

	messageCmd := &cobra.Command{
		Use:   "message <raw>",
		Short: "Handle a bridge message such as subs2srs:play:<file>",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, app App, args []string) error {
			return app.HandleMessage(ctx, args[0])
		}),
	}

	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "List Anki profiles with a collection",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, app App, args []string) error {
			return app.ListProfiles(ctx)
		}),
	}

	rootCmd.AddCommand(contextCmd, neighborsCmd, playCmd, auditCmd, messageCmd, profilesCmd)
	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	// Global flags
	cmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.subs2srs-context.yaml)")
	cmd.PersistentFlags().StringVarP(&flags.CollectionPath, "collection", "c", "", "Path to collection.anki2 (default: the profile's collection)")
	cmd.PersistentFlags().StringVarP(&flags.Profile, "profile", "p", "", "Anki profile name (default: the only profile, or User 1)")
	cmd.PersistentFlags().StringVar(&flags.BaseDir, "base-dir", "", "Anki data directory (default: the platform's Anki2 folder)")
	cmd.PersistentFlags().StringVarP(&flags.OutputFormat, "output", "o", flags.OutputFormat, "Output format: text, json or yaml")
	cmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&flags.LogFormat, "log-format", flags.LogFormat, "Log format: text, json or auto")

	// Resolver flags
	cmd.PersistentFlags().StringVar(&flags.SequenceField, "sequence-field", flags.SequenceField, "Field holding <episode>_<sequence>")
	cmd.PersistentFlags().StringVar(&flags.MarkerField, "marker-field", flags.MarkerField, "Field grouping sequences (empty to ignore markers)")
	cmd.PersistentFlags().StringVar(&flags.AudioField, "audio-field", flags.AudioField, "Field holding [sound:<file>]")
	cmd.PersistentFlags().StringVar(&flags.Mode, "mode", flags.Mode, "Neighbor mode: sequence, adjacent or auto")
	cmd.PersistentFlags().StringVar(&flags.PlayerCommand, "player", "", "Audio player command (default: detect afplay, mpg123, ffplay, ...)")

	// Bind flags to viper
	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	viper.BindPFlag("collection.path", cmd.PersistentFlags().Lookup("collection"))
	viper.BindPFlag("collection.profile", cmd.PersistentFlags().Lookup("profile"))
	viper.BindPFlag("collection.base_dir", cmd.PersistentFlags().Lookup("base-dir"))
	viper.BindPFlag("output.format", cmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", cmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("fields.sequence", cmd.PersistentFlags().Lookup("sequence-field"))
	viper.BindPFlag("fields.marker", cmd.PersistentFlags().Lookup("marker-field"))
	viper.BindPFlag("fields.audio", cmd.PersistentFlags().Lookup("audio-field"))
	viper.BindPFlag("resolver.mode", cmd.PersistentFlags().Lookup("mode"))
	viper.BindPFlag("playback.command", cmd.PersistentFlags().Lookup("player"))
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".subs2srs-context" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".subs2srs-context")
	}

	// Environment variables, e.g. SUBS2SRS_CONTEXT_COLLECTION_PATH
	viper.SetEnvPrefix("SUBS2SRS_CONTEXT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// ParseNoteID parses a note ID argument
func ParseNoteID(s string) (anki.NoteID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid note ID %q", s)
	}
	return anki.NoteID(id), nil
}

// ParseSide normalizes a --side value to "previous" or "next"
func ParseSide(s string) (string, error) {
	switch strings.ToLower(s) {
	case "previous", "prev", "p":
		return "previous", nil
	case "next", "n":
		return "next", nil
	default:
		return "", fmt.Errorf("invalid side %q (want previous or next)", s)
	}
}
