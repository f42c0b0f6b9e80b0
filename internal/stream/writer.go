package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Writer emits envelopes as newline-delimited JSON, flushing after every line
// so clients observe progress as it happens.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter wraps w. If w implements http.Flusher each envelope is flushed
// immediately after it is written.
func NewWriter(w io.Writer) *Writer {
	sw := &Writer{w: w}
	if f, ok := w.(http.Flusher); ok {
		sw.flusher = f
	}
	return sw
}

// Send writes one envelope followed by a newline.
func (sw *Writer) Send(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	if _, err := sw.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write envelope: %w", err)
	}
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
	return nil
}

// Status emits a status envelope.
func (sw *Writer) Status(agent, message string) error {
	return sw.Send(StatusEnvelope(agent, message))
}

// Response emits the terminal response envelope.
func (sw *Writer) Response(answer any, details any) error {
	env, err := ResponseEnvelope(answer, details)
	if err != nil {
		return fmt.Errorf("failed to build response envelope: %w", err)
	}
	return sw.Send(env)
}
