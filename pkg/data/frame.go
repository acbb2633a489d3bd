package data

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Frame is a header plus string records, the raw form every tabular file
// is read into before schema inference and encoding.
type Frame struct {
	Header  []string
	Records [][]string
}

// Len is the number of records.
func (f *Frame) Len() int { return len(f.Records) }

// ColumnIndex returns the position of a named column, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, h := range f.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]string, error) {
	j := f.ColumnIndex(name)
	if j < 0 {
		return nil, fmt.Errorf("frame: no column %q", name)
	}
	out := make([]string, len(f.Records))
	for i, rec := range f.Records {
		out[i] = rec[j]
	}
	return out, nil
}

// ReadCSV loads a CSV file with a header row.
func ReadCSV(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadFrame(context.Background(), file)
}

// ReadFrame reads a header row followed by records. Cells are trimmed.
func ReadFrame(ctx context.Context, r io.Reader) (*Frame, error) {
	out := make(chan []string, 64)
	header, errc, err := StreamRecords(ctx, r, out)
	if err != nil {
		return nil, err
	}
	f := &Frame{Header: header}
	for rec := range out {
		f.Records = append(f.Records, rec)
	}
	if err := <-errc; err != nil {
		return nil, err
	}
	if len(f.Records) == 0 {
		return nil, errors.New("frame: no data rows")
	}
	return f, nil
}

// StreamRecords reads the header synchronously, then streams the remaining
// records through out from a goroutine. Records whose width differs from the
// header are skipped. out is closed when the reader is drained or ctx is
// cancelled, or when the underlying reader fails; the returned error channel
// then yields ctx.Err(), the read error, or nil. Malformed lines are skipped.
func StreamRecords(ctx context.Context, r io.Reader, out chan<- []string) ([]string, <-chan error, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		close(out)
		return nil, nil, fmt.Errorf("frame: read header: %w", err)
	}
	header = trimAll(header)

	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		defer close(out)
		for {
			rec, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				var pe *csv.ParseError
				if errors.As(err, &pe) {
					// malformed line: skip it
					continue
				}
				errc <- fmt.Errorf("frame: read: %w", err)
				return
			}
			if len(rec) != len(header) {
				continue
			}
			select {
			case out <- trimAll(rec):
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return header, errc, nil
}

// WriteCSV writes the frame with its header.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(f.Records); err != nil {
		return err
	}
	return cw.Error()
}

func trimAll(rec []string) []string {
	out := make([]string, len(rec))
	for i, s := range rec {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
