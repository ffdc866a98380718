package local

// isSyncNotSupported reports no unsupported fsync on Windows.
func isSyncNotSupported(err error) bool {
	return false
}

// fsyncDir is a no-op, directories cannot be synced on Windows.
func fsyncDir(_ string) error {
	return nil
}
