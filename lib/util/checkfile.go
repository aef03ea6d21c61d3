package util

import "os"

// CheckFileExists reports whether fpath exists (file or directory).
func CheckFileExists(fpath string) bool {
	_, e := os.Stat(fpath)
	return e == nil
}
