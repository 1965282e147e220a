// Package console reads operator input from the terminal.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoToken is returned when standard input closes before a line is read.
var ErrNoToken = errors.New("no access token on standard input")

// ReadToken reads a single line from r and returns it without its line
// terminator. A final line lacking a newline is accepted. An empty line is
// returned as an empty token.
func ReadToken(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading access token: %w", err)
	}
	if errors.Is(err, io.EOF) && line == "" {
		return "", ErrNoToken
	}

	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}
