package pipeline

import "fmt"

// AssetMissingError marks a fetch failure for one manifest entry. The
// message carries both the logical key and the workspace filename so a
// missing asset can be identified from the order's status field alone.
type AssetMissingError struct {
	Key        string
	RemotePath string
	LocalName  string
	Err        error
}

func (e *AssetMissingError) Error() string {
	return fmt.Sprintf("asset %s (%s) unavailable at %s: %v", e.Key, e.LocalName, e.RemotePath, e.Err)
}

func (e *AssetMissingError) Unwrap() error { return e.Err }

// TranscodeError wraps an engine failure during render or stitch,
// preserving the engine diagnostic.
type TranscodeError struct {
	Stage string // "chapter_1", "chapter_2", "stitch_1", "stitch_2"
	Err   error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("transcode failed at %s: %v", e.Stage, e.Err)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// PublishError wraps a failed chapter upload. Uploads completed before the
// failing one stay published; there is no rollback.
type PublishError struct {
	OutputKey string
	Err       error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish failed for %s: %v", e.OutputKey, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
