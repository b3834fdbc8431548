// SPDX-License-Identifier: EPL-2.0

package pipeline

// Observer follows the progress of renders. Files of a batch may render in
// parallel, so implementations must be safe for concurrent use.
type Observer interface {
	FileStarted(path string, frames int)
	FrameWritten(path string, index int)
	FileDone(path string, err error)
}

type nopObserver struct{}

func (nopObserver) FileStarted(string, int)  {}
func (nopObserver) FrameWritten(string, int) {}
func (nopObserver) FileDone(string, error)   {}
