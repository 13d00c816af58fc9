package version

// Version is set at build time via -ldflags "-X pulse/app/internal/version.Version=..."
var Version = "dev"

// UserAgent is sent with every outbound HTTP request
func UserAgent() string {
	return "pulse/" + Version
}
