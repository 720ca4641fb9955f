package pdf

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrObjectOrder is returned when an object is written with an identifier
// other than the writer's current count + 1. This always indicates a bug in
// the page plan or its consumer, never an environmental failure.
var ErrObjectOrder = errors.New("pdf: object id out of write order")

// errFinalized poisons the writer once the trailer is out, so nothing can be
// appended past %%EOF.
var errFinalized = errors.New("pdf: document already finalized")

// DocumentWriter encodes a PDF as an append-only stream. Objects must be
// written in strict ascending, gap-free id order; the writer records the byte
// offset of each object as it is appended so the cross-reference table can be
// emitted at the end without buffering the document.
type DocumentWriter struct {
	w       io.Writer
	offset  int64
	count   int
	offsets []int64
	err     error
}

// NewDocumentWriter writes the PDF header to w and returns a writer ready to
// accept object 1. Bytes are pushed to w as they are produced, so w may be
// the write end of a pipe feeding an upload.
func NewDocumentWriter(w io.Writer) (*DocumentWriter, error) {
	d := &DocumentWriter{w: w}
	// Version header plus the binary marker comment recommended for files
	// that carry binary stream data.
	if err := d.writeString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n"); err != nil {
		return nil, err
	}
	return d, nil
}

// ObjectCount returns the number of objects written so far.
func (d *DocumentWriter) ObjectCount() int {
	return d.count
}

// AddObject appends a dictionary-only object. id must equal the current
// object count + 1; any other id returns ErrObjectOrder.
func (d *DocumentWriter) AddObject(id int, body string) error {
	if err := d.beginObject(id); err != nil {
		return err
	}
	if err := d.writeString(body); err != nil {
		return err
	}
	if !strings.HasSuffix(body, "\n") {
		if err := d.writeString("\n"); err != nil {
			return err
		}
	}
	return d.writeString("endobj\n")
}

// AddStream appends a stream object. The dictionary entries are joined into
// one dictionary with a /Length entry equal to len(data) injected, followed
// by the raw stream bytes. The same ordering precondition as AddObject
// applies.
func (d *DocumentWriter) AddStream(id int, dict []string, data []byte) error {
	if err := d.beginObject(id); err != nil {
		return err
	}
	header := "<< "
	if len(dict) > 0 {
		header += strings.Join(dict, " ") + " "
	}
	header += fmt.Sprintf("/Length %d >>\nstream\n", len(data))
	if err := d.writeString(header); err != nil {
		return err
	}
	if err := d.write(data); err != nil {
		return err
	}
	return d.writeString("\nendstream\nendobj\n")
}

// Finalize emits the cross-reference table and trailer pointing at the
// catalog object, completing the document. No objects may be added after
// Finalize returns.
func (d *DocumentWriter) Finalize(rootID int) error {
	if d.err != nil {
		return d.err
	}
	if rootID < 1 || rootID > d.count {
		return fmt.Errorf("pdf: root object %d was never written", rootID)
	}

	xrefOffset := d.offset
	if err := d.writeString(fmt.Sprintf("xref\n0 %d\n", d.count+1)); err != nil {
		return err
	}
	// Object 0 is the head of the free list.
	if err := d.writeString("0000000000 65535 f \n"); err != nil {
		return err
	}
	for _, off := range d.offsets {
		if err := d.writeString(fmt.Sprintf("%010d 00000 n \n", off)); err != nil {
			return err
		}
	}

	trailer := fmt.Sprintf("trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		d.count+1, rootID, xrefOffset)
	if err := d.writeString(trailer); err != nil {
		return err
	}

	d.err = errFinalized
	return nil
}

// beginObject validates the id ordering invariant, records the object's byte
// offset, and writes the object header.
func (d *DocumentWriter) beginObject(id int) error {
	if d.err != nil {
		return d.err
	}
	if id != d.count+1 {
		return fmt.Errorf("%w: got %d, want %d", ErrObjectOrder, id, d.count+1)
	}
	d.offsets = append(d.offsets, d.offset)
	d.count = id
	return d.writeString(fmt.Sprintf("%d 0 obj\n", id))
}

func (d *DocumentWriter) write(p []byte) error {
	if d.err != nil {
		return d.err
	}
	n, err := d.w.Write(p)
	d.offset += int64(n)
	if err != nil {
		d.err = fmt.Errorf("pdf: write output: %w", err)
		return d.err
	}
	return nil
}

func (d *DocumentWriter) writeString(s string) error {
	return d.write([]byte(s))
}
