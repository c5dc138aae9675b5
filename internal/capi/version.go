package capi

// These mirror `ffi_version`/`ffi_abi_major` (spec.md §6). abiMajor bumps
// only on a breaking change to the C ABI surface itself, independent of
// the semantic version.
const (
	versionMajor = 2
	versionMinor = 0
	versionPatch = 0
	abiMajor     = 1
)

// Version holds the {major, minor, patch} triple `ffi_version` returns.
type Version struct {
	Major, Minor, Patch uint32
}

// GetVersion implements `ffi_version`.
func GetVersion() Version {
	return Version{Major: versionMajor, Minor: versionMinor, Patch: versionPatch}
}

// AbiMajor implements `ffi_abi_major`.
func AbiMajor() uint32 {
	return abiMajor
}
