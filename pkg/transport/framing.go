package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/omm-project/omm-go/pkg/log"
	"github.com/omm-project/omm-go/pkg/wire"
)

// Framing constants.
const (
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 2

	// DefaultMaxFrameSize bounds one frame payload (report id + body). Hello
	// frames carry a device description and need more room than a report.
	DefaultMaxFrameSize = 1024
)

// helloReport is the reserved report id of the frame a bridge server sends
// first on every connection. Its body is the CBOR encoded DeviceInfo.
const helloReport wire.ReportID = 0x00

// Framing errors.
var (
	// ErrFrameTooLarge indicates the frame exceeds the maximum size.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrFrameEmpty indicates a zero-length frame.
	ErrFrameEmpty = errors.New("frame is empty")

	// ErrFrameTruncated indicates the stream ended inside a frame.
	ErrFrameTruncated = errors.New("frame truncated")
)

// FrameWriter writes length-prefixed report frames:
// [length BE16][report id][body].
type FrameWriter struct {
	w            io.Writer
	maxFrameSize int
	mu           sync.Mutex

	logger log.Logger
	connID string
}

// NewFrameWriter creates a frame writer.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w, maxFrameSize: DefaultMaxFrameSize}
}

// SetLogger configures protocol capture for this writer. Pass nil to
// disable it.
func (fw *FrameWriter) SetLogger(logger log.Logger, connID string) {
	fw.logger = logger
	fw.connID = connID
}

// WriteReport writes one frame. Safe for concurrent use.
func (fw *FrameWriter) WriteReport(report wire.ReportID, data []byte) error {
	size := 1 + len(data)
	if size > fw.maxFrameSize {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, size, fw.maxFrameSize)
	}

	buf := make([]byte, LengthPrefixSize+size)
	binary.BigEndian.PutUint16(buf, uint16(size))
	buf[LengthPrefixSize] = byte(report)
	copy(buf[LengthPrefixSize+1:], data)

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if _, err := fw.w.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	if fw.logger != nil && report != helloReport {
		fw.logger.Log(frameEvent(fw.connID, log.DirectionOut, report, data))
	}
	return nil
}

// FrameReader reads length-prefixed report frames.
type FrameReader struct {
	r            io.Reader
	maxFrameSize int
	lengthBuf    [LengthPrefixSize]byte

	logger log.Logger
	connID string
}

// NewFrameReader creates a frame reader.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r, maxFrameSize: DefaultMaxFrameSize}
}

// SetLogger configures protocol capture for this reader. Pass nil to
// disable it.
func (fr *FrameReader) SetLogger(logger log.Logger, connID string) {
	fr.logger = logger
	fr.connID = connID
}

// ReadReport reads one frame and returns its report id and body.
// A clean end of stream between frames returns io.EOF.
func (fr *FrameReader) ReadReport() (wire.ReportID, []byte, error) {
	if _, err := io.ReadFull(fr.r, fr.lengthBuf[:]); err != nil {
		if err == io.EOF {
			return 0, nil, err
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil, ErrFrameTruncated
		}
		return 0, nil, fmt.Errorf("failed to read length prefix: %w", err)
	}

	size := int(binary.BigEndian.Uint16(fr.lengthBuf[:]))
	if size == 0 {
		return 0, nil, ErrFrameEmpty
	}
	if size > fr.maxFrameSize {
		return 0, nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, size, fr.maxFrameSize)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
			return 0, nil, ErrFrameTruncated
		}
		return 0, nil, fmt.Errorf("failed to read payload: %w", err)
	}

	report := wire.ReportID(payload[0])
	data := payload[1:]

	if fr.logger != nil && report != helloReport {
		fr.logger.Log(frameEvent(fr.connID, log.DirectionIn, report, data))
	}
	return report, data, nil
}

// Framer combines frame reading and writing.
type Framer struct {
	*FrameReader
	*FrameWriter
}

// NewFramer creates a framer for bidirectional communication.
func NewFramer(rw io.ReadWriter) *Framer {
	return &Framer{
		FrameReader: NewFrameReader(rw),
		FrameWriter: NewFrameWriter(rw),
	}
}

// SetLogger configures capture for both directions.
func (f *Framer) SetLogger(logger log.Logger, connID string) {
	f.FrameReader.SetLogger(logger, connID)
	f.FrameWriter.SetLogger(logger, connID)
}

func frameEvent(connID string, direction log.Direction, report wire.ReportID, data []byte) log.Event {
	buf := make([]byte, len(data))
	copy(buf, data)
	return log.Event{
		Timestamp: time.Now(),
		SessionID: connID,
		Direction: direction,
		Layer:     log.LayerTransport,
		Category:  log.CategoryMessage,
		Frame: &log.FrameEvent{
			ReportID: uint8(report),
			Data:     buf,
		},
	}
}
