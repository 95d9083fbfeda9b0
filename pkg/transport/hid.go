package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/sstallion/go-hid"

	"github.com/omm-project/omm-go/pkg/wire"
)

// Logitech identifiers.
const (
	// LogitechVendorID is the USB vendor id of Logitech devices.
	LogitechVendorID uint16 = 0x046D

	// VendorUsagePage is the HID usage page of the HID++ collections.
	VendorUsagePage uint16 = 0xFF00
)

// HIDConfig configures a HID transport.
type HIDConfig struct {
	// VendorID filters enumeration (default: Logitech).
	VendorID uint16

	// ProductIDs restricts enumeration to these products. Empty accepts any.
	ProductIDs []uint16

	// Path opens this device path directly, skipping selection.
	Path string

	// Selector picks one of the enumerated interfaces. Returning false
	// aborts the open with ErrNoDeviceSelected. nil uses PreferVendorInterface.
	Selector func(candidates []DeviceInfo) (DeviceInfo, bool)

	// ReadTimeout bounds each blocking read so Close is observed promptly
	// (default: 100ms).
	ReadTimeout time.Duration

	// Logger receives operational logs. nil disables them.
	Logger *slog.Logger
}

// DefaultHIDConfig returns the default HID configuration.
func DefaultHIDConfig() HIDConfig {
	return HIDConfig{
		VendorID:    LogitechVendorID,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// HID is a Transport over a hidraw/hidapi device.
type HID struct {
	config HIDConfig

	mu   sync.Mutex
	dev  *hid.Device
	info DeviceInfo
	done chan struct{}
	wg   sync.WaitGroup

	handlerMu sync.RWMutex
	handler   ReportHandler
}

// NewHID creates a closed HID transport.
func NewHID(config HIDConfig) *HID {
	if config.VendorID == 0 {
		config.VendorID = LogitechVendorID
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = DefaultHIDConfig().ReadTimeout
	}
	return &HID{config: config}
}

// Enumerate lists the HID interfaces of vendorID, restricted to productIDs
// when non-empty.
func Enumerate(vendorID uint16, productIDs []uint16) ([]DeviceInfo, error) {
	if err := hid.Init(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}

	var found []DeviceInfo
	err := hid.Enumerate(vendorID, hid.ProductIDAny, func(info *hid.DeviceInfo) error {
		if len(productIDs) > 0 && !slices.Contains(productIDs, info.ProductID) {
			return nil
		}
		found = append(found, fromHIDInfo(info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: enumerate: %v", ErrTransportUnavailable, err)
	}
	return found, nil
}

// PreferVendorInterface picks the first interface on the HID++ vendor usage
// page, falling back to the first candidate.
func PreferVendorInterface(candidates []DeviceInfo) (DeviceInfo, bool) {
	if len(candidates) == 0 {
		return DeviceInfo{}, false
	}
	for _, c := range candidates {
		if c.UsagePage == VendorUsagePage {
			return c, true
		}
	}
	return candidates[0], true
}

// Open selects and opens a device, then starts the read loop.
func (t *HID) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dev != nil {
		return ErrAlreadyOpen
	}

	info, err := t.choose()
	if err != nil {
		return err
	}

	dev, err := hid.OpenPath(info.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", info.Path, err)
	}

	t.dev = dev
	t.info = info
	t.done = make(chan struct{})

	t.logger().Info("hid device opened",
		"path", info.Path,
		"vendor_id", fmt.Sprintf("0x%04x", info.VendorID),
		"product_id", fmt.Sprintf("0x%04x", info.ProductID),
		"name", info.Name)

	t.wg.Add(1)
	go t.readLoop(dev, t.done)
	return nil
}

func (t *HID) choose() (DeviceInfo, error) {
	candidates, err := Enumerate(t.config.VendorID, t.config.ProductIDs)
	if err != nil {
		return DeviceInfo{}, err
	}

	if t.config.Path != "" {
		for _, c := range candidates {
			if c.Path == t.config.Path {
				return c, nil
			}
		}
		return DeviceInfo{Path: t.config.Path, VendorID: t.config.VendorID}, nil
	}

	selector := t.config.Selector
	if selector == nil {
		selector = PreferVendorInterface
	}
	info, ok := selector(candidates)
	if !ok {
		return DeviceInfo{}, ErrNoDeviceSelected
	}
	return info, nil
}

// Close stops the read loop and closes the device.
func (t *HID) Close() error {
	t.mu.Lock()
	dev := t.dev
	if dev == nil {
		t.mu.Unlock()
		return nil
	}
	close(t.done)
	t.dev = nil
	t.mu.Unlock()

	t.wg.Wait()
	if err := dev.Close(); err != nil {
		return fmt.Errorf("close hid device: %w", err)
	}
	t.logger().Info("hid device closed", "path", t.info.Path)
	return nil
}

// Send writes one output report, prefixing the report id.
func (t *HID) Send(report wire.ReportID, data []byte) error {
	t.mu.Lock()
	dev := t.dev
	t.mu.Unlock()

	if dev == nil {
		return ErrNotOpen
	}

	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, byte(report))
	buf = append(buf, data...)

	if _, err := dev.Write(buf); err != nil {
		return fmt.Errorf("hid write: %w", err)
	}
	return nil
}

// SetReportHandler installs the inbound report handler.
func (t *HID) SetReportHandler(h ReportHandler) {
	t.handlerMu.Lock()
	t.handler = h
	t.handlerMu.Unlock()
}

// Info returns the opened device description.
func (t *HID) Info() DeviceInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.info
}

func (t *HID) reportHandler() ReportHandler {
	t.handlerMu.RLock()
	defer t.handlerMu.RUnlock()
	return t.handler
}

func (t *HID) readLoop(dev *hid.Device, done <-chan struct{}) {
	defer t.wg.Done()

	buf := make([]byte, 1+wire.VeryLongLen)
	for {
		select {
		case <-done:
			return
		default:
		}

		n, err := dev.ReadWithTimeout(buf, t.config.ReadTimeout)
		if err != nil {
			if errors.Is(err, hid.ErrTimeout) || err.Error() == "Interrupted system call" {
				continue
			}
			select {
			case <-done:
			default:
				t.logger().Warn("hid read failed", "path", t.info.Path, "error", err)
			}
			return
		}
		if n < 1 {
			continue
		}

		data := make([]byte, n-1)
		copy(data, buf[1:n])
		if h := t.reportHandler(); h != nil {
			h(wire.ReportID(buf[0]), data)
		}
	}
}

func (t *HID) logger() *slog.Logger {
	if t.config.Logger != nil {
		return t.config.Logger
	}
	return discardLogger
}

func fromHIDInfo(info *hid.DeviceInfo) DeviceInfo {
	return DeviceInfo{
		Name:      info.ProductStr,
		VendorID:  info.VendorID,
		ProductID: info.ProductID,
		Path:      info.Path,
		Serial:    info.SerialNbr,
		UsagePage: info.UsagePage,
		Interface: info.InterfaceNbr,
	}
}

var discardLogger = slog.New(slog.DiscardHandler)

var _ Transport = (*HID)(nil)
