package shell

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

// LineReader reads one line of input after showing prompt. It returns
// io.EOF when the input is exhausted and an error matching ErrInterrupt
// when the user breaks out of the line.
type LineReader interface {
	ReadLine(ctx context.Context, prompt string) (string, error)
}

var ErrInterrupt = errors.New("interrupt")

// InterruptError carries whatever was typed before the interrupt.
type InterruptError struct {
	Pending string
}

func (e *InterruptError) Error() string        { return ErrInterrupt.Error() }
func (e *InterruptError) Is(target error) bool { return target == ErrInterrupt }

// MaxLineLength bounds a single line read by ScanReader.
const MaxLineLength = 64 * 1024

// ErrLineTooLong is returned for a line longer than MaxLineLength. The line
// is consumed, so the next read starts on the following line.
var ErrLineTooLong = errors.New("line too long")

// ScanReader reads newline-terminated lines from a plain stream such as a
// pipe or a redirected file. Prompts are echoed to w when it is non-nil.
type ScanReader struct {
	r *bufio.Reader
	w io.Writer
}

func NewScanReader(r io.Reader, w io.Writer) *ScanReader {
	return &ScanReader{r: bufio.NewReader(r), w: w}
}

func (r *ScanReader) ReadLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r.w != nil {
		io.WriteString(r.w, prompt)
	}
	line, err := r.next()
	// A cancel that arrived while blocked wins over the line it interrupted.
	if cerr := ctx.Err(); cerr != nil {
		return "", cerr
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r"), nil
}

func (r *ScanReader) next() (string, error) {
	var (
		buf     []byte
		tooLong bool
		read    bool
	)
	for {
		chunk, more, err := r.r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && read {
				break
			}
			return "", err
		}
		read = true
		if !tooLong && len(buf)+len(chunk) > MaxLineLength {
			tooLong, buf = true, nil
		}
		if !tooLong {
			buf = append(buf, chunk...)
		}
		if !more {
			break
		}
	}
	if tooLong {
		return "", ErrLineTooLong
	}
	return string(buf), nil
}
