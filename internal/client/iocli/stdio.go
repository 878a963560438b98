package iocli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

type Stdio struct {
	in    *bufio.Reader
	out   io.Writer
	inFD  int
	isTTY bool
}

// NewStdio возвращает IO поверх os.Stdin и os.Stdout
func NewStdio() IO {
	s := New(os.Stdin, os.Stdout)
	fd := int(os.Stdin.Fd())
	s.inFD, s.isTTY = fd, term.IsTerminal(fd)
	return s
}

// New возвращает IO поверх произвольных потоков. Пароль читается как обычная строка.
func New(in io.Reader, out io.Writer) *Stdio {
	return &Stdio{in: bufio.NewReader(in), out: out}
}

func (s *Stdio) Println(a ...any) {
	_, _ = fmt.Fprintln(s.out, a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *Stdio) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

func (s *Stdio) ReadInput(prompt string) (string, error) {
	s.Printf("%s", prompt)
	input, err := s.in.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// ReadPassword читает пароль без эха, если stdin - терминал
func (s *Stdio) ReadPassword(prompt string) (string, error) {
	if !s.isTTY {
		return s.ReadInput(prompt)
	}
	s.Printf("%s", prompt)
	pwBytes, err := term.ReadPassword(s.inFD)
	s.Println("")
	if err != nil {
		return "", err
	}
	return string(pwBytes), nil
}
