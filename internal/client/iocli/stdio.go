package iocli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Stdio реализует IO поверх потоков процесса
type Stdio struct {
	in  *bufio.Reader
	out io.Writer
	fd  int // дескриптор ввода для проверки терминала, -1 если не файл
	mu  sync.Mutex
}

// NewStdio создает IO на os.Stdin / os.Stdout
func NewStdio() IO {
	return &Stdio{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
		fd:  int(os.Stdin.Fd()),
	}
}

// NewStream создает IO на произвольных потоках, ввод считается не интерактивным
func NewStream(in io.Reader, out io.Writer) IO {
	return &Stdio{
		in:  bufio.NewReader(in),
		out: out,
		fd:  -1,
	}
}

func (s *Stdio) Println(a ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintln(s.out, a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *Stdio) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Write(p)
}

func (s *Stdio) ReadInput(prompt string) (string, error) {
	if prompt != "" {
		s.Printf("%s", prompt)
	}

	// Один reader на весь поток: буферизованный ввод не теряется между вызовами
	input, err := s.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && input != "" {
			return strings.TrimRight(input, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(input, "\r\n"), nil
}

func (s *Stdio) Interactive() bool {
	return s.fd >= 0 && term.IsTerminal(s.fd)
}
