// Package flatfile reads and writes the tab-delimited text exports used for
// patient and lab data. The first line of every file is a header; each
// following line is one record with tab-separated fields.
package flatfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

const maxLineBytes = 1 << 20

// FileError reports a file that could not be opened or read.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// MalformedRecordError reports a data row that cannot be used. Line is
// 1-based and counts the header.
type MalformedRecordError struct {
	Path   string
	Line   int
	Reason string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s:%d: malformed record: %s: %v", e.Path, e.Line, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s:%d: malformed record: %s", e.Path, e.Line, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// Reader returns data rows from a tab-delimited file. The header is consumed
// by Open and kept in Header.
type Reader struct {
	Header []string

	path   string
	f      *os.File
	sc     *bufio.Scanner
	line   int
	fields int
}

// Open opens path and consumes its header line. When fields is greater than
// zero every data row must have exactly that many fields.
func Open(path string, fields int) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	r := &Reader{path: path, f: f, sc: sc, fields: fields}
	if sc.Scan() {
		r.line = 1
		r.Header = splitLine(sc.Text())
	} else if err := sc.Err(); err != nil {
		f.Close()
		return nil, &FileError{Path: path, Err: err}
	}
	return r, nil
}

// Path returns the file the reader was opened on.
func (r *Reader) Path() string { return r.path }

// Line returns the 1-based number of the line most recently returned.
func (r *Reader) Line() int { return r.line }

// Read returns the next data row, or io.EOF when the file is exhausted.
// Blank lines are skipped.
func (r *Reader) Read() ([]string, error) {
	for r.sc.Scan() {
		r.line++
		text := trimLine(r.sc.Text())
		if text == "" {
			continue
		}
		row := splitLine(text)
		if r.fields > 0 && len(row) != r.fields {
			return nil, &MalformedRecordError{
				Path:   r.path,
				Line:   r.line,
				Reason: fmt.Sprintf("expected %d fields, got %d", r.fields, len(row)),
			}
		}
		return row, nil
	}
	if err := r.sc.Err(); err != nil {
		return nil, &FileError{Path: r.path, Err: err}
	}
	return nil, io.EOF
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}

// ReadAll returns every data row of path, header excluded. A fields value of
// zero returns rows of any width.
func ReadAll(path string, fields int) ([][]string, error) {
	r, err := Open(path, fields)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// trimLine drops trailing spaces and carriage returns. Trailing tabs are kept
// so an empty final column still counts as a field.
func trimLine(s string) string {
	return strings.TrimRight(s, " \r")
}

func splitLine(s string) []string {
	parts := strings.Split(trimLine(s), "\t")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// Writer emits rows in the format Reader consumes. The header is written
// before the first row, or on Flush if no rows were written.
type Writer struct {
	w           *bufio.Writer
	header      []string
	wroteHeader bool
}

// NewWriter returns a Writer that writes header then rows to w.
func NewWriter(w io.Writer, header []string) *Writer {
	return &Writer{w: bufio.NewWriter(w), header: header}
}

// Write writes a single row. Fields may not contain tabs or line breaks.
func (w *Writer) Write(row []string) error {
	if err := w.writeHeader(); err != nil {
		return err
	}
	return w.writeRow(row)
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if err := w.writeHeader(); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *Writer) writeHeader() error {
	if w.wroteHeader {
		return nil
	}
	w.wroteHeader = true
	return w.writeRow(w.header)
}

func (w *Writer) writeRow(row []string) error {
	for _, field := range row {
		if strings.ContainsAny(field, "\t\r\n") {
			return fmt.Errorf("field %q contains a tab or line break", field)
		}
	}
	if _, err := w.w.WriteString(strings.Join(row, "\t")); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}
