// Package input resolves command arguments from the command line or, when
// jam sits at the end of a pipe, from standard input.
package input

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/x/term"

	"github.com/Sternrassler/jam/internal/output"
)

// maxStdin bounds how much piped input is read.
const maxStdin = 4 << 20

// Resolver reads arguments from args first and from stdin second.
type Resolver struct {
	in          io.Reader
	interactive bool

	once sync.Once
	data string
	err  error
}

// New returns a Resolver reading from in. Stdin is only consulted when in is
// not a terminal.
func New(in io.Reader) *Resolver {
	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = term.IsTerminal(f.Fd())
	}
	return &Resolver{in: in, interactive: interactive}
}

// NewWithTTY returns a Resolver with explicit terminal detection (for testing).
func NewWithTTY(in io.Reader, interactive bool) *Resolver {
	return &Resolver{in: in, interactive: interactive}
}

// Stdin returns a Resolver for os.Stdin.
func Stdin() *Resolver {
	return New(os.Stdin)
}

func (r *Resolver) stdin() (string, error) {
	if r.interactive || r.in == nil {
		return "", nil
	}
	r.once.Do(func() {
		data, err := io.ReadAll(io.LimitReader(r.in, maxStdin))
		if err != nil {
			r.err = fmt.Errorf("read stdin: %w", err)
			return
		}
		r.data = strings.TrimSpace(string(data))
	})
	return r.data, r.err
}

// Argument returns value, or the trimmed stdin when value is empty.
// name labels the usage error returned when neither is given.
func (r *Resolver) Argument(value, name string) (string, error) {
	if value != "" {
		return value, nil
	}
	piped, err := r.stdin()
	if err != nil {
		return "", err
	}
	if piped != "" {
		return piped, nil
	}
	return "", output.ErrUsage(name + " not provided")
}

// OptionalArgument is like Argument but yields "" instead of an error.
func (r *Resolver) OptionalArgument(value string) (string, error) {
	if value != "" {
		return value, nil
	}
	return r.stdin()
}

// List returns values, or the non-empty lines of stdin when values is empty.
// The result may be empty.
func (r *Resolver) List(values []string) ([]string, error) {
	if len(values) > 0 {
		return values, nil
	}
	piped, err := r.stdin()
	if err != nil || piped == "" {
		return []string{}, err
	}

	lines := strings.Split(piped, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}

// FirstArg returns args[0] or "".
func FirstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
