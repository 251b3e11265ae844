//go:build !windows

package server

import "os"

func setSocketPermissions(path string) error {
	return os.Chmod(path, 0700)
}
