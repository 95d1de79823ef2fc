package mesh

import "fmt"

// Release of the registry. Suffix is empty for tagged releases.
const (
	Major  = 0
	Minor  = 1
	Patch  = 0
	Suffix = "-dev"
)

// GitCommit is injected at build time with
// -ldflags "-X github.com/iov-one/mesh.GitCommit=<sha>".
var GitCommit = ""

// Version formats the release, followed by the commit when known.
func Version() string {
	v := fmt.Sprintf("v%d.%d.%d%s", Major, Minor, Patch, Suffix)
	if GitCommit == "" {
		return v
	}
	return v + " " + GitCommit
}
