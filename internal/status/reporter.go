package status

import (
	"fmt"
	"io"
	"log"
	"sync"

	"go.bug.st/serial"
)

// Reporter writes supervision lines to a sink. Lines that cannot be written
// are kept in a bounded backlog and replayed, oldest first, once the sink
// accepts writes again.
type Reporter struct {
	mu      sync.Mutex
	w       io.Writer
	backlog *ringBuffer
}

// NewReporter creates a reporter on w keeping at most backlog lines.
func NewReporter(w io.Writer, backlog int) *Reporter {
	return &Reporter{w: w, backlog: newRingBuffer(backlog)}
}

// Report writes one line. On failure the line is queued and the write error
// returned.
func (r *Reporter) Report(line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.backlog.len() > 0 {
		pending := r.backlog.drainAll()
		for i, old := range pending {
			if err := r.write(old); err != nil {
				for _, l := range pending[i:] {
					r.backlog.push(l)
				}
				r.backlog.push(line)
				return err
			}
		}
		log.Printf("report: replayed %d buffered lines", len(pending))
	}

	if err := r.write(line); err != nil {
		r.backlog.push(line)
		return err
	}
	return nil
}

// Pending returns the number of buffered lines.
func (r *Reporter) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backlog.len()
}

func (r *Reporter) write(line string) error {
	if _, err := io.WriteString(r.w, line+"\n"); err != nil {
		return fmt.Errorf("report: write: %w", err)
	}
	return nil
}

// OpenSerial opens the supervision serial port for writing.
func OpenSerial(port string, baudRate int) (io.WriteCloser, error) {
	conn, err := serial.Open(port, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", port, err)
	}
	return &serialSink{conn: conn}, nil
}

// serialSink reports short writes as errors so the line is kept.
type serialSink struct {
	conn serial.Port
}

func (s *serialSink) Write(p []byte) (int, error) {
	n, err := s.conn.Write(p)
	if err != nil {
		return n, err
	}
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

func (s *serialSink) Close() error {
	if err := s.conn.Drain(); err != nil {
		log.Printf("report: drain serial port: %v", err)
	}
	return s.conn.Close()
}
