package download

import (
	"context"
	"io"
)

// progress is an io.Writer that ignores the data but counts the bytes, for use with io.TeeReader.
type progress struct {
	downloaded int64
	expected   int64
	callback   ProgressFunc
}

func (p *progress) Write(b []byte) (int, error) {
	p.downloaded += int64(len(b))
	p.report()
	return len(b), nil
}

func (p *progress) report() {
	if p.callback != nil {
		p.callback(p.downloaded, p.expected)
	}
}

// A context-aware io.Reader wrapper.
type readerContext struct {
	ctx context.Context
	r   io.Reader
}

func (r *readerContext) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
