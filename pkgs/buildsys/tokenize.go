package buildsys

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"
)

// ErrEmptyCommand is returned by Tokenize for a blank command line.
var ErrEmptyCommand = errors.New("empty command line")

// Tokenize splits a command line into process arguments using shell-like
// whitespace rules; quoted substrings stay one argument. Variables are not
// expanded and unquoted control operators (; & | < >) are rejected.
//
// For Windows targets backslashes are path separators, not escapes.
func Tokenize(line string, windows bool) ([]string, error) {
	input := line
	if windows {
		input = literalBackslashes(line)
	}
	p := shellwords.NewParser()
	p.ParseEnv = false
	p.ParseBacktick = false
	args, err := p.Parse(input)
	if err != nil {
		return nil, fmt.Errorf("tokenize %q: %w", line, err)
	}
	if p.Position >= 0 {
		return nil, fmt.Errorf("tokenize %q: unsupported shell operator", line)
	}
	if len(args) == 0 {
		return nil, ErrEmptyCommand
	}
	return args, nil
}

// literalBackslashes escapes every backslash the shell parser would read as
// an escape, that is all of them outside single quotes.
func literalBackslashes(line string) string {
	if !strings.Contains(line, `\`) {
		return line
	}
	var b strings.Builder
	b.Grow(len(line) + 8)
	var single, double bool
	for _, r := range line {
		switch {
		case r == '\'' && !double:
			single = !single
		case r == '"' && !single:
			double = !double
		case r == '\\' && !single:
			b.WriteRune(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
