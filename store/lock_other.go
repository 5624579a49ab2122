//go:build !unix

package store

import "os"

// Advisory locking is unavailable; the in-process mutex still serialises
// writers sharing one JSONLLog.
func lockFile(*os.File, bool) error { return nil }

func unlockFile(*os.File) {}
