// SPDX-License-Identifier: EPL-2.0

package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ik5/wavereel/compose"
)

var (
	ErrIncomplete     = errors.New("renderer is missing a collaborator")
	ErrOutputConflict = errors.New("output already claimed by another file of the batch")
)

// Stage names the step of a render that failed.
type Stage string

const (
	StageFingerprint Stage = "fingerprint"
	StageOutputs     Stage = "outputs"
	StageAssets      Stage = "assets"
	StageEnhance     Stage = "enhance"
	StageAnalyze     Stage = "analyze"
	StageFrames      Stage = "frames"
	StageAssemble    Stage = "assemble"
	StageSkipped     Stage = "skipped"
)

// FileError reports a failure of one source file.
type FileError struct {
	Path  string
	Stage Stage
	Err   error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s: %v", filepath.Base(e.Path), e.Stage, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

func fileErr(path string, stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &FileError{Path: path, Stage: stage, Err: err}
}

// IsBatchFatal reports whether err will recur for every file, so the rest of
// a batch should not be attempted.
func IsBatchFatal(err error) bool {
	return errors.Is(err, compose.ErrAssetMissing)
}
