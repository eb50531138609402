package util

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
)

// shortSession is how much of a session id text lines show
const shortSession = 8

// writerOutput encodes entries onto one writer
type writerOutput struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	format LogFormat
}

// NewConsoleOutput writes entries to w, which is never closed
func NewConsoleOutput(w io.Writer, format LogFormat) Output {
	return &writerOutput{w: w, format: format}
}

// NewFileOutput appends entries to path, creating its directory
func NewFileOutput(path string, format LogFormat) (Output, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &writerOutput{w: file, closer: file, format: format}, nil
}

func (o *writerOutput) Write(entry LogEntry) error {
	line, err := encodeEntry(entry, o.format)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err = o.w.Write(line)
	return err
}

func (o *writerOutput) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer.Close()
}

// encodeEntry renders one line. Text lines look like
//
//	2024/05/01 12:00:00.000 INFO  [3f2a9c1e] Page window: advanced to page 2 page=2
//
// with fields sorted by key.
func encodeEntry(entry LogEntry, format LogFormat) ([]byte, error) {
	if format == FormatJSON {
		data, err := sonic.Marshal(entry)
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}

	var b strings.Builder
	b.WriteString(entry.Timestamp.Format("2006/01/02 15:04:05.000"))
	fmt.Fprintf(&b, " %-5s ", entry.Level)
	if entry.Session != "" {
		id := entry.Session
		if len(id) > shortSession {
			id = id[:shortSession]
		}
		fmt.Fprintf(&b, "[%s] ", id)
	}
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Fields[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}
