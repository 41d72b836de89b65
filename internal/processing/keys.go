package processing

import (
	"strings"

	"recording-orchestrator/internal/engine"
)

// Storage layout under a session's prefix root:
//
//	<root>/clips/<timestamp>.mp4        uploaded during the live session
//	<root>/parts/part-<NNN>.mp4         intermediate batch outputs
//	<root>/final-video/index.m3u8       master playlist of the finished asset
//
// Clip keys are time-prefixed at upload, so lexicographic order over keys is
// chronological order. That contract is relied on here, not enforced.
const (
	clipsSubPrefix = "clips/"
	partsSubPrefix = "parts/"
	finalSubPrefix = "final-video/"
	finalBaseName  = "index"
)

// ClipsPrefix returns the listing prefix for a session's uploaded clips.
func ClipsPrefix(root string) string {
	return joinPrefix(root, clipsSubPrefix)
}

// PartsDestination returns the engine destination URI prefix for the
// intermediate batch outputs.
func PartsDestination(bucket, root string) string {
	return "s3://" + bucket + "/" + joinPrefix(root, partsSubPrefix)
}

// PartKey returns the object key batch n's intermediate output lands at.
// Must stay in step with the destination BuildBatchJob derives.
func PartKey(root string, n int) string {
	return joinPrefix(root, partsSubPrefix) + engine.PartBaseName(n) + ".mp4"
}

// FinalDestination returns the engine destination URI for the HLS output,
// without extension; the engine derives index.m3u8 from its base name.
func FinalDestination(bucket, root string) string {
	return "s3://" + bucket + "/" + joinPrefix(root, finalSubPrefix) + finalBaseName
}

// FinalOutputKey returns the object key of the master playlist the final job
// produces.
func FinalOutputKey(root string) string {
	return joinPrefix(root, finalSubPrefix) + finalBaseName + ".m3u8"
}

// ObjectURI returns the s3:// URI for an object key.
func ObjectURI(bucket, key string) string {
	return "s3://" + bucket + "/" + key
}

func joinPrefix(root, sub string) string {
	root = strings.Trim(root, "/")
	if root == "" {
		return sub
	}
	return root + "/" + sub
}
