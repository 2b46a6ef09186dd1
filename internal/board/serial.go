package board

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the board firmware baud rate.
	DefaultBaudRate = 115200
	// DefaultTimeout bounds a single command round trip.
	DefaultTimeout = 500 * time.Millisecond

	readChunk = 64
)

// Serial drives the board over a line protocol:
//
//	A <ch>          -> <value>
//	P <ch> <duty>   -> OK
//	M <L|R> <speed> -> OK
//
// Any answer starting with "ERR" is a rejection.
type Serial struct {
	mu      sync.Mutex
	conn    io.ReadWriter
	closer  io.Closer
	timeout time.Duration
	now     func() time.Time
	pending []byte
	stale   bool // a reply may still be in flight
}

// inputFlusher is implemented by serial.Port.
type inputFlusher interface {
	ResetInputBuffer() error
}

var _ Board = (*Serial)(nil)

// Open connects to the board on the named serial port.
func Open(port string, baudRate int) (*Serial, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}

	conn, err := serial.Open(port, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", port, err)
	}
	// Short reads let a command fail on timeout instead of blocking forever.
	if err := conn.SetReadTimeout(50 * time.Millisecond); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", port, err)
	}
	if err := conn.ResetInputBuffer(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("flush %s: %w", port, err)
	}

	s := newSerial(conn)
	s.closer = conn
	return s, nil
}

func newSerial(conn io.ReadWriter) *Serial {
	return &Serial{
		conn:    conn,
		timeout: DefaultTimeout,
		now:     time.Now,
	}
}

// AnalogRead returns the raw ADC value of channel ch.
func (s *Serial) AnalogRead(ch int) (int, error) {
	resp, err := s.transact(fmt.Sprintf("A %d", ch))
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(resp)
	if err != nil {
		return 0, fmt.Errorf("board: bad analog value %q: %w", resp, err)
	}
	if v < 0 || v > MaxADC {
		return 0, fmt.Errorf("board: analog value %d out of range", v)
	}
	return v, nil
}

// AnalogWrite sets the PWM duty of channel ch.
func (s *Serial) AnalogWrite(ch int, duty uint8) error {
	return s.expectOK(fmt.Sprintf("P %d %d", ch, duty))
}

// SetSpeedLeft drives the left motor channel.
func (s *Serial) SetSpeedLeft(speed int) error {
	return s.expectOK(fmt.Sprintf("M L %d", ClampSpeed(speed)))
}

// SetSpeedRight drives the right motor channel.
func (s *Serial) SetSpeedRight(speed int) error {
	return s.expectOK(fmt.Sprintf("M R %d", ClampSpeed(speed)))
}

// Close stops both motors and closes the port.
func (s *Serial) Close() error {
	var errs []error
	if err := s.SetSpeedLeft(0); err != nil {
		errs = append(errs, err)
	}
	if err := s.SetSpeedRight(0); err != nil {
		errs = append(errs, err)
	}
	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close serial port: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func (s *Serial) expectOK(cmd string) error {
	resp, err := s.transact(cmd)
	if err != nil {
		return err
	}
	if resp != "OK" {
		return fmt.Errorf("board: unexpected answer %q to %q", resp, cmd)
	}
	return nil
}

// transact sends one command and waits for its answer line.
func (s *Serial) transact(cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stale {
		s.resync()
	}

	if _, err := s.conn.Write([]byte(cmd + "\n")); err != nil {
		return "", fmt.Errorf("board: send %q: %w", cmd, err)
	}

	line, err := s.readLine()
	if err != nil {
		s.stale = true
		return "", fmt.Errorf("board: %q: %w", cmd, err)
	}
	if strings.HasPrefix(line, "ERR") {
		return "", fmt.Errorf("%w: %q: %s", ErrRejected, cmd, strings.TrimSpace(strings.TrimPrefix(line, "ERR")))
	}
	return line, nil
}

// resync discards the late answer of a failed command so the next command
// reads its own reply.
func (s *Serial) resync() {
	s.pending = s.pending[:0]
	if f, ok := s.conn.(inputFlusher); ok {
		if err := f.ResetInputBuffer(); err != nil {
			log.Printf("board: flush input: %v", err)
		}
	}

	deadline := s.now().Add(s.timeout)
	buf := make([]byte, readChunk)
	dropped := 0
	for s.now().Before(deadline) {
		n, err := s.conn.Read(buf)
		dropped += n
		if n == 0 || (err != nil && err != io.EOF) {
			break
		}
	}
	if dropped > 0 {
		log.Printf("board: dropped %d stale bytes", dropped)
	}
	s.stale = false
}

func (s *Serial) readLine() (string, error) {
	deadline := s.now().Add(s.timeout)
	buf := make([]byte, readChunk)
	for {
		if i := bytes.IndexByte(s.pending, '\n'); i >= 0 {
			line := strings.TrimSpace(string(s.pending[:i]))
			s.pending = s.pending[i+1:]
			if line == "" {
				continue
			}
			return line, nil
		}

		n, err := s.conn.Read(buf)
		if n > 0 {
			s.pending = append(s.pending, buf[:n]...)
			continue
		}
		if err != nil && err != io.EOF {
			return "", err
		}
		if !s.now().Before(deadline) {
			return "", ErrTimeout
		}
		time.Sleep(time.Millisecond)
	}
}
