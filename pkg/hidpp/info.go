package hidpp

import (
	"context"
	"slices"

	"github.com/omm-project/omm-go/pkg/profile"
	"github.com/omm-project/omm-go/pkg/transport"
	"github.com/omm-project/omm-go/pkg/wire"
)

// defaultProtocol is reported when no probe answered.
const defaultProtocol = "HID++ 2.0"

// Model describes a supported mouse.
type Model struct {
	Name    string `json:"name"`
	Buttons int    `json:"buttons"`
	MaxDPI  int    `json:"maxDpi"`
}

var models = map[uint16]Model{
	0xC07D: {"G502 Proteus Core", 11, 12000},
	0xC08B: {"G502 HERO", 11, 25600},
	0xC08D: {"G502 LIGHTSPEED", 11, 25600},
	0xC094: {"G502 X", 13, 25600},
	0xC095: {"G502 X LIGHTSPEED", 13, 25600},
	0xC096: {"G502 X PLUS", 13, 25600},
	0xC092: {"G PRO X SUPERLIGHT", 5, 25600},
	0xC088: {"G PRO Wireless", 8, 25600},
	0xC084: {"G203 Prodigy", 6, 8000},
	0xC090: {"G305", 6, 12000},
	0xC082: {"G403 Prodigy", 6, 12000},
	0xC083: {"G403 Hero", 6, 25600},
	0xC07E: {"G402", 8, 4000},
	0xC539: {"G903 HERO", 11, 25600},
	0xC541: {"G903 LIGHTSPEED", 11, 25600},
}

// LookupModel returns the model for a Logitech product id.
func LookupModel(pid uint16) (Model, bool) {
	m, ok := models[pid]
	return m, ok
}

// SupportedProductIDs returns the product ids of every known model in
// ascending order.
func SupportedProductIDs() []uint16 {
	ids := make([]uint16, 0, len(models))
	for id := range models {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// DeviceInfo is the identity of a connected mouse.
type DeviceInfo struct {
	Name        string   `json:"name"`
	VendorID    uint16   `json:"vendorId"`
	ProductID   uint16   `json:"productId"`
	Protocol    string   `json:"protocol"`
	Model       *Model   `json:"model,omitempty"`
	DeviceName  string   `json:"deviceName,omitempty"`
	Features    []string `json:"features"`
	DeviceIndex uint8    `json:"deviceIndex"`
}

// DisplayName prefers the on-device name, then the model name, then the
// transport's product string.
func (i *DeviceInfo) DisplayName() string {
	switch {
	case i.DeviceName != "":
		return i.DeviceName
	case i.Model != nil:
		return i.Model.Name
	default:
		return i.Name
	}
}

// MaxDPI is the model's sensor limit, or the profile maximum for unknown
// models.
func (i *DeviceInfo) MaxDPI() int {
	if i.Model != nil && i.Model.MaxDPI > 0 {
		return i.Model.MaxDPI
	}
	return profile.MaxDPI
}

// HasFeature reports whether name was listed during enumeration.
func (i *DeviceInfo) HasFeature(name string) bool {
	return slices.Contains(i.Features, name)
}

func (d *Device) readInfo(ctx context.Context, t transport.DeviceInfo, index uint8, v Version, answered bool) *DeviceInfo {
	info := &DeviceInfo{
		Name:        t.Name,
		VendorID:    t.VendorID,
		ProductID:   t.ProductID,
		Protocol:    defaultProtocol,
		DeviceIndex: index,
	}
	if answered && v.Major >= 2 {
		info.Protocol = v.String()
	}
	if m, ok := LookupModel(t.ProductID); ok {
		info.Model = &m
	}

	if d.HasFeature(ctx, wire.FeatureDeviceName) {
		name, err := d.GetDeviceName(ctx)
		if err != nil {
			d.logger.Warn("reading device name failed", "error", err)
		} else {
			info.DeviceName = name
		}
	}

	info.Features = d.Features(ctx)
	return info
}
