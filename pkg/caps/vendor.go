package caps

import "strings"

// GPUVendor identifies the maker of the device a profile describes.
type GPUVendor uint8

const (
	VendorUnknown GPUVendor = iota
	VendorNVIDIA
	VendorAMD
	VendorIntel
	VendorImagination
	VendorApple
	VendorNokia
	VendorMSSoftware
	VendorMSWarp
	VendorARM
	VendorQualcomm
	VendorMozilla
	VendorWebKit

	numVendors
)

var vendorNames = [numVendors]string{
	VendorUnknown:     "unknown",
	VendorNVIDIA:      "nvidia",
	VendorAMD:         "amd",
	VendorIntel:       "intel",
	VendorImagination: "imagination",
	VendorApple:       "apple",
	VendorNokia:       "nokia",
	VendorMSSoftware:  "ms_software",
	VendorMSWarp:      "ms_warp",
	VendorARM:         "arm",
	VendorQualcomm:    "qualcomm",
	VendorMozilla:     "mozilla",
	VendorWebKit:      "webkit",
}

// Valid reports whether v is one of the known vendors.
func (v GPUVendor) Valid() bool { return v < numVendors }

// String returns the lowercase vendor token. Values that are not Valid
// render as "unknown".
func (v GPUVendor) String() string {
	if v >= numVendors {
		return vendorNames[VendorUnknown]
	}
	return vendorNames[v]
}

// ParseGPUVendor maps a vendor name to its value. Matching ignores case and
// anything unrecognised is VendorUnknown.
func ParseGPUVendor(s string) GPUVendor {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range vendorNames {
		if name == s {
			return GPUVendor(i)
		}
	}
	return VendorUnknown
}
