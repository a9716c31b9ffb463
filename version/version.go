package version

// Version and Date are overridden at build time via
// -ldflags "-X github.com/ChristianF88/realtyx/version.Version=... -X ...Date=..."
var (
	Version = "dev"
	Date    = ""
)
