package config

// Version is the odin binary version.
// Set at build time via: -ldflags "-X github.com/odinkg/odin/internal/config.Version=<tag>"
// Defaults to "dev" when built without ldflags.
var Version = "dev"
