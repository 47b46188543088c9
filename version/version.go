package version

var (
	// GitCommit is the current HEAD set using ldflags.
	GitCommit string

	// Version is the built softwares version.
	Version = SemVer
)

func init() {
	if GitCommit != "" {
		Version += "-" + GitCommit
	}
}

const (
	// SemVer is the current version of the order book application.
	// Must be a string because scripts read this file.
	SemVer = "0.1.0"

	// AppProtocol versions the state machine. Blocks executed by different
	// protocol versions are not comparable.
	AppProtocol Protocol = 1
)

// Protocol is used for implementation agnostic versioning.
type Protocol uint64

// Uint64 returns the Protocol version as a uint64,
// eg. for compatibility with ABCI types.
func (p Protocol) Uint64() uint64 {
	return uint64(p)
}
