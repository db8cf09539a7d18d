package output

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/sdejongh/greenbox/pkg/transfer"
	"golang.org/x/term"
)

const progressTemplate = `{{string . "prefix"}} {{counters . }} {{bar . }} {{percent . }} {{speed . }}`

// getUpdateInterval returns the refresh interval; Windows terminals are
// slower with ANSI sequences
func getUpdateInterval() time.Duration {
	if runtime.GOOS == "windows" {
		return 300 * time.Millisecond
	}
	return 100 * time.Millisecond
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// Progress renders one byte-level bar for a transfer run. It implements
// transfer.Observer.
type Progress struct {
	mu         sync.Mutex
	bar        *pb.ProgressBar
	seen       map[int]int64 // bytes already counted per task
	totalFiles int
	done       int
	failed     int
}

// NewProgress starts a bar on w for totalFiles files of totalBytes bytes
func NewProgress(w io.Writer, totalFiles int, totalBytes int64) *Progress {
	bar := pb.New64(totalBytes)
	bar.SetWriter(w)
	bar.SetTemplateString(progressTemplate)
	bar.SetRefreshRate(getUpdateInterval())
	bar.Set(pb.Bytes, true)

	if file, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
			bar.SetWidth(width)
		}
	}

	p := &Progress{bar: bar, seen: make(map[int]int64), totalFiles: totalFiles}
	p.bar.Set("prefix", p.prefix())
	p.bar.Start()
	return p
}

func (p *Progress) prefix() string {
	if p.failed > 0 {
		return fmt.Sprintf("[%d/%d, %d failed]", p.done, p.totalFiles, p.failed)
	}
	return fmt.Sprintf("[%d/%d]", p.done, p.totalFiles)
}

func (p *Progress) advance(index int, bytes int64) {
	if delta := bytes - p.seen[index]; delta > 0 {
		p.bar.Add64(delta)
		p.seen[index] = bytes
	}
}

// OnEvent updates the bar from a transfer event
func (p *Progress) OnEvent(e transfer.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e.Type {
	case transfer.EventProgress:
		p.advance(e.Index, e.Bytes)
	case transfer.EventComplete:
		p.advance(e.Index, e.Bytes)
		p.done++
	case transfer.EventError:
		p.failed++
	}
	p.bar.Set("prefix", p.prefix())
}

// Finish stops the bar and leaves the final state on screen
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bar.Finish()
}

// Transferred returns the bytes counted so far
func (p *Progress) Transferred() int64 {
	return p.bar.Current()
}
