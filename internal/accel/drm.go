package accel

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Device is a GPU found in sysfs.
type Device struct {
	Card     string
	Vendor   string
	Driver   string
	DeviceID string
	PCISlot  string
	Model    string
}

// String formats a device for display.
func (d Device) String() string {
	name := d.Model
	if name == "" {
		name = d.Vendor + " " + d.DeviceID
	}
	return fmt.Sprintf("%s: %s (driver %s, slot %s)", d.Card, strings.TrimSpace(name), d.Driver, d.PCISlot)
}

// isCardDevice accepts card0, card1, ... but not connectors (card0-DP-1)
// or render nodes (renderD128).
func isCardDevice(name string) bool {
	if !strings.HasPrefix(name, "card") {
		return false
	}
	suffix := name[4:]
	if len(suffix) == 0 {
		return false
	}
	for _, c := range suffix {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// readDriverName returns the basename of the device's driver symlink.
func readDriverName(devicePath string) string {
	link, err := os.Readlink(filepath.Join(devicePath, "driver"))
	if err != nil {
		return ""
	}
	return filepath.Base(link)
}

// parsePCIUevent reads vendor, device ID and PCI slot from lines like
//
//	PCI_ID=1002:744A
//	PCI_SLOT_NAME=0000:c3:00.0
func parsePCIUevent(devicePath string) (vendor, deviceID, pciSlot string) {
	data, err := os.ReadFile(filepath.Join(devicePath, "uevent"))
	if err != nil {
		return "", "", ""
	}

	var rawVendor, rawDevice string
	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "PCI_ID":
			if v, d, ok := strings.Cut(value, ":"); ok {
				rawVendor = strings.ToLower(v)
				rawDevice = strings.ToLower(d)
			}
		case "PCI_SLOT_NAME":
			pciSlot = value
		}
	}

	vendor = pciVendorName(rawVendor)
	if rawDevice != "" {
		deviceID = "0x" + rawDevice
	}
	return vendor, deviceID, pciSlot
}

func pciVendorName(id string) string {
	switch id {
	case "1002":
		return "AMD"
	case "10de":
		return "NVIDIA"
	case "8086":
		return "Intel"
	case "":
		return ""
	default:
		return "0x" + id
	}
}

// enumerateDRM lists card devices whose driver is in drivers.
func enumerateDRM(sysRoot string, drivers map[string]bool) []Device {
	drmBase := filepath.Join(sysRoot, "class/drm")
	entries, err := os.ReadDir(drmBase)
	if err != nil {
		return nil
	}

	var devices []Device
	for _, entry := range entries {
		name := entry.Name()
		if !isCardDevice(name) {
			continue
		}
		devicePath := filepath.Join(drmBase, name, "device")
		driver := readDriverName(devicePath)
		if !drivers[driver] {
			continue
		}

		d := Device{Card: name, Driver: driver}
		d.Vendor, d.DeviceID, d.PCISlot = parsePCIUevent(devicePath)
		devices = append(devices, d)
	}
	return devices
}
