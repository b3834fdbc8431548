// SPDX-License-Identifier: EPL-2.0

package main

import (
	"io"
	"path/filepath"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// progress shows one bar per file being rendered.
type progress struct {
	p *mpb.Progress

	mtx  sync.Mutex
	bars map[string]*mpb.Bar
}

func newProgress(out io.Writer) *progress {
	return &progress{
		p:    mpb.New(mpb.WithWidth(64), mpb.WithOutput(out)),
		bars: make(map[string]*mpb.Bar),
	}
}

func (pr *progress) FileStarted(path string, frames int) {
	bar := pr.p.AddBar(int64(frames),
		mpb.PrependDecorators(
			decor.Name(filepath.Base(path)+" "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.AverageETA(decor.ET_STYLE_GO),
		),
	)

	pr.mtx.Lock()
	pr.bars[path] = bar
	pr.mtx.Unlock()
}

func (pr *progress) bar(path string) *mpb.Bar {
	pr.mtx.Lock()
	defer pr.mtx.Unlock()
	return pr.bars[path]
}

func (pr *progress) FrameWritten(path string, _ int) {
	if bar := pr.bar(path); bar != nil {
		bar.Increment()
	}
}

func (pr *progress) FileDone(path string, err error) {
	bar := pr.bar(path)
	if bar == nil {
		return
	}

	if err != nil {
		bar.Abort(false)
		return
	}
	bar.SetTotal(-1, true)
}

// Wait blocks until every bar has finished drawing.
func (pr *progress) Wait() {
	pr.p.Wait()
}
