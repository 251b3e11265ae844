//go:build windows

package server

// setSocketPermissions is a no-op on Windows, where socket access is
// governed by ACLs.
func setSocketPermissions(path string) error {
	return nil
}
