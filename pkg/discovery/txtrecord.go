package discovery

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeBridgeTXT creates the TXT records of a bridge announcement.
func EncodeBridgeTXT(info *BridgeInfo) TXTRecordMap {
	name := info.Name
	if len(name) > MaxTXTValueLen {
		name = name[:MaxTXTValueLen]
	}
	return TXTRecordMap{
		TXTKeyName:    name,
		TXTKeyVendor:  fmt.Sprintf("%04x", info.VendorID),
		TXTKeyProduct: fmt.Sprintf("%04x", info.ProductID),
		TXTKeyVersion: BridgeVersion,
	}
}

// DecodeBridgeTXT parses bridge TXT records. vid and pid are required;
// name and ver are optional.
func DecodeBridgeTXT(txt TXTRecordMap) (*BridgeInfo, string, error) {
	vid, err := parseID(txt, TXTKeyVendor)
	if err != nil {
		return nil, "", err
	}
	pid, err := parseID(txt, TXTKeyProduct)
	if err != nil {
		return nil, "", err
	}
	return &BridgeInfo{
		Name:      txt[TXTKeyName],
		VendorID:  vid,
		ProductID: pid,
	}, txt[TXTKeyVersion], nil
}

func parseID(txt TXTRecordMap, key string) (uint16, error) {
	s, ok := txt[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingRequired, key)
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, key, s)
	}
	return uint16(v), nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value"
// strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	slices.Sort(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, found := strings.Cut(s, "=")
		if k == "" {
			continue
		}
		if !found {
			// Key without value (boolean flag)
			v = ""
		}
		txt[k] = v
	}
	return txt
}

// InstanceName derives a DNS-SD instance name from a bridge
// announcement.
func InstanceName(info *BridgeInfo) string {
	name := info.Instance
	if name == "" {
		name = info.Name
	}
	if name == "" {
		name = fmt.Sprintf("omm-%04x", info.ProductID)
	}
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
