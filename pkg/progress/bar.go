package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/x/ansi"
)

const barWidth = 30

type barTask struct {
	description string
	total       int
	completed   int
}

// Bar draws one progress bar per task on a terminal. It is safe for
// concurrent use.
type Bar struct {
	mu     sync.Mutex
	out    io.Writer
	model  progress.Model
	tasks  []*barTask
	drawn  int
	closed bool
}

// NewBar creates a Bar writing to out, normally os.Stderr.
func NewBar(out io.Writer) *Bar {
	return &Bar{
		out: out,
		model: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(barWidth),
			progress.WithoutPercentage(),
		),
	}
}

// AddTask implements Reporter.
func (b *Bar) AddTask(description string, total, completed int) Task {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return NoTask
	}

	b.tasks = append(b.tasks, &barTask{
		description: description,
		total:       total,
		completed:   min(completed, total),
	})
	b.render()
	return Task(len(b.tasks) - 1)
}

// Advance implements Reporter.
func (b *Bar) Advance(task Task, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || task < 0 || int(task) >= len(b.tasks) {
		return
	}

	t := b.tasks[task]
	t.completed = min(t.completed+n, t.total)
	b.render()
}

// Close implements Reporter. Bars stay on screen; the cursor moves below them.
func (b *Bar) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	if b.drawn > 0 {
		fmt.Fprintln(b.out)
	}
	b.tasks = nil
}

// render redraws every task in place. Callers hold b.mu.
func (b *Bar) render() {
	var sb strings.Builder

	if b.drawn > 1 {
		sb.WriteString(ansi.CursorUp(b.drawn - 1))
	}
	for i, t := range b.tasks {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("\r")
		sb.WriteString(ansi.EraseEntireLine)
		sb.WriteString(b.line(t))
	}

	b.drawn = len(b.tasks)
	io.WriteString(b.out, sb.String())
}

func (b *Bar) line(t *barTask) string {
	percent := 1.0
	if t.total > 0 {
		percent = float64(t.completed) / float64(t.total)
	}
	return fmt.Sprintf("%s %s %d/%d", t.description, b.model.ViewAs(percent), t.completed, t.total)
}
