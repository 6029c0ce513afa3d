package fhir

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// NDJSONWriter writes one JSON-encoded resource per line, the layout used by
// FHIR bulk data exports.
type NDJSONWriter struct {
	w     *bufio.Writer
	count int
}

// NewNDJSONWriter creates a new NDJSONWriter that writes to w.
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{
		w: bufio.NewWriter(w),
	}
}

// WriteResource serialises resource as a single line.
func (n *NDJSONWriter) WriteResource(resource interface{}) error {
	data, err := json.Marshal(resource)
	if err != nil {
		return fmt.Errorf("encode resource %d: %w", n.count+1, err)
	}
	if _, err := n.w.Write(data); err != nil {
		return err
	}
	if err := n.w.WriteByte('\n'); err != nil {
		return err
	}
	n.count++
	return nil
}

// Count returns the number of resources written so far.
func (n *NDJSONWriter) Count() int { return n.count }

// Flush flushes any buffered data to the underlying writer.
func (n *NDJSONWriter) Flush() error {
	return n.w.Flush()
}
