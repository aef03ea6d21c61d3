package util

import (
	"os"
)

// UserHome locates the directory config.BaseDir nests ".netcrypt" under. It
// tries os.UserHomeDir first, then $HOME/$USERPROFILE, then the working
// directory, rather than giving up — a transport demo CLI shouldn't refuse
// to start just because $HOME is unset in some container.
func UserHome() string {
	homeDir, err := os.UserHomeDir()
	if err == nil {
		return homeDir
	}

	if home := os.Getenv("HOME"); home != "" {
		log.WithError(err).Warn("os.UserHomeDir failed, falling back to $HOME")
		return home
	}
	if home := os.Getenv("USERPROFILE"); home != "" {
		log.WithError(err).Warn("os.UserHomeDir failed, falling back to USERPROFILE")
		return home
	}
	if wd, wdErr := os.Getwd(); wdErr == nil {
		log.WithError(err).Warn("os.UserHomeDir and $HOME unavailable; falling back to working directory")
		return wd
	}
	panic("netcrypt: unable to determine home directory or working directory")
}
