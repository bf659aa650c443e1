package internal

// Version is the program version, overridden at build time with
// -ldflags "-X github.com/abdnh/subs2srs-context/internal.Version=..."
var Version = "dev"
