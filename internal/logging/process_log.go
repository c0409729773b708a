package logging

import (
	"fmt"
	"io"
	"os"
)

// ProcessLog writes a fixed per-process log line format:
// "N<rank> [clk|<clock>]: <message>", one line per send, receive, or log
// call, appended to process<rank>_<appname>.log. This is a
// protocol-observability artifact with a fixed shape, not a logging
// framework concern, so it is written directly rather than coerced out of
// an hclog formatter.
type ProcessLog struct {
	rank    int
	appName string
	file    io.WriteCloser
	verbose bool
}

// NewProcessLog opens process<rank>_<appName>.log in dir (dir may be
// empty for the current directory). When verbose is true, every line is
// also streamed to stderr in addition to the file.
func NewProcessLog(dir string, rank int, appName string, verbose bool) (*ProcessLog, error) {
	path := fmt.Sprintf("process%d_%s.log", rank, appName)
	if dir != "" {
		path = dir + "/" + path
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &ProcessLog{rank: rank, appName: appName, file: f, verbose: verbose}, nil
}

// Log writes one line: "N<rank> [clk|<clock>]: <message>".
func (p *ProcessLog) Log(clock uint64, message string) {
	line := fmt.Sprintf("N%d [clk|%d]: %s\n", p.rank, clock, message)
	if p.verbose {
		fmt.Fprint(os.Stderr, line)
	}
	io.WriteString(p.file, line)
}

// Close flushes and closes the underlying file.
func (p *ProcessLog) Close() error {
	return p.file.Close()
}
