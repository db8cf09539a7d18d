package output

import (
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/sdejongh/greenbox/pkg/manager"
)

// Notifier prints manager notices, coloured by level
type Notifier struct {
	mu     sync.Mutex
	w      io.Writer
	quiet  bool
	styles map[manager.Level]*color.Color
	marks  map[manager.Level]string
}

// NewNotifier writes notices to w. Quiet drops success and info notices;
// colour is disabled when plain is set.
func NewNotifier(w io.Writer, quiet, plain bool) *Notifier {
	n := &Notifier{
		w:     w,
		quiet: quiet,
		styles: map[manager.Level]*color.Color{
			manager.LevelSuccess: color.New(color.FgGreen),
			manager.LevelInfo:    color.New(color.FgCyan),
			manager.LevelWarning: color.New(color.FgYellow),
			manager.LevelError:   color.New(color.FgRed, color.Bold),
		},
		marks: map[manager.Level]string{
			manager.LevelSuccess: "✓",
			manager.LevelInfo:    "i",
			manager.LevelWarning: "!",
			manager.LevelError:   "✗",
		},
	}
	if plain {
		for _, c := range n.styles {
			c.DisableColor()
		}
	}
	return n
}

// Notify prints one notice
func (n *Notifier) Notify(notice manager.Notice) {
	if n.quiet && (notice.Level == manager.LevelSuccess || notice.Level == manager.LevelInfo) {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	style, ok := n.styles[notice.Level]
	if !ok {
		style = n.styles[manager.LevelInfo]
	}
	mark := n.marks[notice.Level]
	if mark == "" {
		mark = "i"
	}
	style.Fprintf(n.w, "%s %s\n", mark, notice.Message)
}
