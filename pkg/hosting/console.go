package hosting

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Console is the line-oriented terminal the planner loop talks to.
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// WriteLine writes s followed by a newline.
func (c *Console) WriteLine(s string) error {
	_, err := fmt.Fprintln(c.out, s)
	return errors.Wrap(err, "could not write to console")
}

// ReadLine reads one line without its trailing CR/LF. io.EOF is returned only
// when the input is exhausted and nothing was read.
func (c *Console) ReadLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			if line == "" {
				return "", io.EOF
			}
		} else {
			return "", errors.Wrap(err, "could not read from console")
		}
	}
	return strings.TrimRight(line, "\r\n"), nil
}
