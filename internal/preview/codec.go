package preview

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/olos-console/backend/internal/apperr"
	"github.com/olos-console/backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// maxFrameSize bounds a single decoded frame.
const maxFrameSize = 64 << 20

// wireEvent is the MessagePack shape of a ParseEvent.
type wireEvent struct {
	Kind       models.EventKind `msgpack:"kind"`
	Index      int              `msgpack:"index"`
	Segments   []models.Segment `msgpack:"linesToDraw,omitempty"`
	Overflowed bool             `msgpack:"isBiggerThanPlatform"`
	Done       bool             `msgpack:"done"`
	StartPoint *models.Point    `msgpack:"startPoint,omitempty"`
	EndPoint   *models.Point    `msgpack:"endPoint,omitempty"`
	Bounds     *models.Bounds   `msgpack:"bounds,omitempty"`
	Error      *wireError       `msgpack:"error,omitempty"`
}

type wireError struct {
	Code    string `msgpack:"code"`
	Message string `msgpack:"message"`
	Details string `msgpack:"details,omitempty"`
	Line    int    `msgpack:"line,omitempty"`
}

func toWire(ev models.ParseEvent) wireEvent {
	w := wireEvent{
		Kind:       ev.Kind,
		Index:      ev.Index,
		Segments:   ev.Segments,
		Overflowed: ev.Overflowed,
		Done:       ev.Done,
		StartPoint: ev.StartPoint,
		EndPoint:   ev.EndPoint,
	}
	if ev.Kind == models.EventComplete {
		b := ev.Bounds
		w.Bounds = &b
	}
	if ev.Err != nil {
		var ae *apperr.Error
		if errors.As(ev.Err, &ae) {
			w.Error = &wireError{Code: ae.Code, Message: ae.Message, Details: ae.Details, Line: ae.Line}
		} else {
			w.Error = &wireError{Code: apperr.CodeStreamFailure, Message: ev.Err.Error()}
		}
	}
	return w
}

func fromWire(w wireEvent) models.ParseEvent {
	ev := models.ParseEvent{
		Kind:       w.Kind,
		Index:      w.Index,
		Segments:   w.Segments,
		Overflowed: w.Overflowed,
		Done:       w.Done,
		StartPoint: w.StartPoint,
		EndPoint:   w.EndPoint,
	}
	if w.Bounds != nil {
		ev.Bounds = *w.Bounds
	}
	if w.Error != nil {
		ev.Err = &apperr.Error{
			Code:    w.Error.Code,
			Message: w.Error.Message,
			Details: w.Error.Details,
			Line:    w.Error.Line,
		}
	}
	return ev
}

// EncodeEvent marshals an event to MessagePack.
func EncodeEvent(ev models.ParseEvent) ([]byte, error) {
	data, err := msgpack.Marshal(toWire(ev))
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}
	return data, nil
}

// DecodeEvent unmarshals an event produced by EncodeEvent. A decoded error
// is an *apperr.Error without its original cause.
func DecodeEvent(data []byte) (models.ParseEvent, error) {
	var w wireEvent
	if err := msgpack.Unmarshal(data, &w); err != nil {
		return models.ParseEvent{}, fmt.Errorf("failed to decode event: %w", err)
	}
	return fromWire(w), nil
}

// StreamEncoder writes events as frames of a little-endian uint32 length
// followed by the MessagePack payload.
type StreamEncoder struct {
	w     io.Writer
	count int
}

// NewStreamEncoder creates an encoder writing to w.
func NewStreamEncoder(w io.Writer) *StreamEncoder {
	return &StreamEncoder{w: w}
}

// Encode writes one frame.
func (e *StreamEncoder) Encode(ev models.ParseEvent) error {
	data, err := EncodeEvent(ev)
	if err != nil {
		return err
	}
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(data)))
	if _, err := e.w.Write(hdr[:]); err != nil {
		return fmt.Errorf("failed to write frame header: %w", err)
	}
	if _, err := e.w.Write(data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	e.count++
	return nil
}

// Count returns the number of frames written.
func (e *StreamEncoder) Count() int { return e.count }

// StreamDecoder reads frames written by StreamEncoder.
type StreamDecoder struct {
	r io.Reader
}

// NewStreamDecoder creates a decoder reading from r.
func NewStreamDecoder(r io.Reader) *StreamDecoder {
	return &StreamDecoder{r: r}
}

// Decode reads the next frame. It returns io.EOF at a clean end of stream.
func (d *StreamDecoder) Decode() (models.ParseEvent, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(d.r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return models.ParseEvent{}, io.EOF
		}
		return models.ParseEvent{}, fmt.Errorf("failed to read frame header: %w", err)
	}
	n := binary.LittleEndian.Uint32(hdr[:])
	if n > maxFrameSize {
		return models.ParseEvent{}, fmt.Errorf("frame of %d bytes exceeds limit", n)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(d.r, data); err != nil {
		return models.ParseEvent{}, fmt.Errorf("failed to read frame: %w", err)
	}
	return DecodeEvent(data)
}
