package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return fmt.Sprintf("xssprobe %s (commit=%s, date=%s)", Version, Commit, Date)
}

// UserAgent is the default User-Agent sent when a profile does not set one.
func UserAgent() string {
	return "xssprobe/" + Version
}
