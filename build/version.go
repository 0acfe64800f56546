package build

// Version is the current version of the remi module.
const Version = "0.1.0"

// GitRevision and BuildTime are assigned via -ldflags at build time.
var (
	GitRevision string
	BuildTime   string
)
