package runner

import (
	"bytes"
	"sync"
)

const defaultStderrTailBytes = 1024 * 1024 // 1MB of stderr kept per build

// tailBuffer keeps only the last maxBytes of the lines written to it so a runaway
// build log cannot exhaust memory while we wait to find out whether it failed.
type tailBuffer struct {
	maxBytes int

	mu       sync.Mutex
	total    int64
	contents []byte
	overflow bool
}

func newTailBuffer(maxBytes int) *tailBuffer {
	if maxBytes <= 0 {
		maxBytes = defaultStderrTailBytes
	}
	return &tailBuffer{maxBytes: maxBytes}
}

func (b *tailBuffer) WriteLine(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total += int64(len(line)) + 1
	b.contents = append(b.contents, line...)
	b.contents = append(b.contents, '\n')
	if len(b.contents) > b.maxBytes {
		// Cut at a line boundary so the kept text starts with a whole line
		cut := len(b.contents) - b.maxBytes
		if b.contents[cut-1] != '\n' {
			if i := bytes.IndexByte(b.contents[cut:], '\n'); i >= 0 && cut+i+1 < len(b.contents) {
				cut += i + 1
			}
		}
		b.contents = append([]byte(nil), b.contents[cut:]...)
		b.overflow = true
	}
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.contents)
}

func (b *tailBuffer) TotalBytes() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

func (b *tailBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.overflow
}
