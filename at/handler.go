package at

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNoMatch is returned by Dispatch when no registered prefix matches
	// the line.
	ErrNoMatch = errors.New("no handler for line")

	// ErrArgCount is returned by Dispatch when the best matching handler
	// requires more fields than the line carries. The handler is not run.
	ErrArgCount = errors.New("too few response fields")
)

// Cmd binds a response prefix to the handler that consumes the fields
// following it.
//
// The remainder of a matched line is split on Delim into positional fields.
// An empty Delim hands the whole remainder to the handler as a single field,
// which is how free-form responses such as the manufacturer string are
// captured.
type Cmd struct {
	// Prefix is matched against the start of each line. The empty prefix
	// matches every line and loses to any longer match.
	Prefix string
	// MinArgs is the minimum number of fields the handler needs.
	MinArgs int
	// MaxArgs caps the number of fields passed on; 0 means no cap.
	MaxArgs int
	// Delim separates fields. Delimiters inside double quotes do not split.
	Delim string
	// Func is invoked with the parsed fields.
	Func func(args []string)
}

// Registry holds the response handlers that stay registered for the life
// of a command channel. Handlers that only apply to one exchange are passed
// to Dispatch alongside the registry instead of being registered.
type Registry struct {
	cmds []Cmd
}

// NewRegistry returns a registry holding cmds.
func NewRegistry(cmds ...Cmd) *Registry {
	return &Registry{cmds: append([]Cmd(nil), cmds...)}
}

// Register adds cmds to the registry. It is meant to be called during
// setup, before lines are dispatched.
func (r *Registry) Register(cmds ...Cmd) {
	r.cmds = append(r.cmds, cmds...)
}

// Match returns the most specific handler for line among the registered
// handlers and extra, together with the fields it would be invoked with.
// The longest matching prefix wins; on a tie, extra wins over registered
// handlers.
func (r *Registry) Match(line string, extra []Cmd) (Cmd, []string, error) {
	best := -1
	var found Cmd
	consider := func(c Cmd) {
		if !strings.HasPrefix(line, c.Prefix) {
			return
		}
		if len(c.Prefix) > best {
			best = len(c.Prefix)
			found = c
		}
	}
	for _, c := range extra {
		consider(c)
	}
	for _, c := range r.cmds {
		consider(c)
	}
	if best < 0 {
		return Cmd{}, nil, ErrNoMatch
	}

	args := Split(strings.TrimPrefix(line, found.Prefix), found.Delim)
	if len(args) < found.MinArgs {
		return found, args, fmt.Errorf("%q wants %d fields, got %d: %w",
			found.Prefix, found.MinArgs, len(args), ErrArgCount)
	}
	if found.MaxArgs > 0 && len(args) > found.MaxArgs {
		args = args[:found.MaxArgs]
	}
	return found, args, nil
}

// Dispatch finds the handler for line and invokes it. Lines without a
// handler, or with too few fields, are reported as errors and otherwise
// ignored.
func (r *Registry) Dispatch(line string, extra []Cmd) error {
	c, args, err := r.Match(line, extra)
	if err != nil {
		return err
	}
	if c.Func != nil {
		c.Func(args)
	}
	return nil
}

// Split breaks s into fields on delim, keeping quoted sections intact.
// Fields are trimmed of surrounding spaces but keep their quotes. An empty
// delim yields s as the only field; an empty s yields no fields.
func Split(s, delim string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if delim == "" {
		return []string{s}
	}

	var (
		fields []string
		quoted bool
		start  int
	)
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '"':
			quoted = !quoted
		case !quoted && strings.HasPrefix(s[i:], delim):
			fields = append(fields, strings.TrimSpace(s[start:i]))
			start = i + len(delim)
			i += len(delim) - 1
		}
	}
	return append(fields, strings.TrimSpace(s[start:]))
}

// ParseInt parses a numeric field that may carry a leading quote, as in
// `"1A2B"`. Anything after the digits (such as the closing quote) is
// ignored. It returns def when no number can be read.
func ParseInt(s string, base int, def int) int {
	s = strings.TrimPrefix(strings.TrimSpace(s), `"`)
	end := 0
	for end < len(s) && isDigit(s[end], base, end == 0) {
		end++
	}
	n, err := strconv.ParseInt(s[:end], base, 64)
	if err != nil {
		return def
	}
	return int(n)
}

// Unquote strips one pair of surrounding double quotes, if present.
func Unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func isDigit(c byte, base int, first bool) bool {
	if first && c == '-' {
		return true
	}
	switch {
	case c >= '0' && c <= '9':
		return int(c-'0') < base
	case c >= 'a' && c <= 'z':
		return int(c-'a')+10 < base
	case c >= 'A' && c <= 'Z':
		return int(c-'A')+10 < base
	}
	return false
}
