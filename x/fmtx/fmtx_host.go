//go:build !cortexm3

package fmtx

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultOutput is where Print and Printf write; it defaults to os.Stdout.
var DefaultOutput io.Writer = os.Stdout

// Sprint, Fprint and Print put one space between every pair of operands,
// strings included (fmt.Sprint omits it next to a string operand).

func Sprintf(format string, a ...any) string                    { return fmt.Sprintf(format, a...) }
func Printf(format string, a ...any) (int, error)               { return fmt.Fprintf(DefaultOutput, format, a...) }
func Fprintf(w io.Writer, format string, a ...any) (int, error) { return fmt.Fprintf(w, format, a...) }
func Errorf(format string, a ...any) error                      { return fmt.Errorf(format, a...) }
func Sprint(a ...any) string                                    { return strings.TrimSuffix(fmt.Sprintln(a...), "\n") }
func Fprint(w io.Writer, a ...any) (int, error)                 { return io.WriteString(w, Sprint(a...)) }
func Print(a ...any) (int, error)                               { return Fprint(DefaultOutput, a...) }
