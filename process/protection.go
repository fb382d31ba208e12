package process

// ProtectionFlags is a read/write/execute permission mask for a memory range.
type ProtectionFlags uint8

const (
	ProtectionRead ProtectionFlags = 1 << iota
	ProtectionWrite
	ProtectionExecute
)

const (
	NoAccess         ProtectionFlags = 0
	ReadOnly                         = ProtectionRead
	ReadWrite                        = ProtectionRead | ProtectionWrite
	ExecuteOnly                      = ProtectionExecute
	ExecuteRead                      = ProtectionRead | ProtectionExecute
	ExecuteReadWrite                 = ProtectionRead | ProtectionWrite | ProtectionExecute
)

func (f ProtectionFlags) CanRead() bool    { return f&ProtectionRead != 0 }
func (f ProtectionFlags) CanWrite() bool   { return f&ProtectionWrite != 0 }
func (f ProtectionFlags) CanExecute() bool { return f&ProtectionExecute != 0 }

// String renders the flags in /proc/<pid>/maps order, e.g. "r-x".
func (f ProtectionFlags) String() string {
	b := []byte("---")
	if f.CanRead() {
		b[0] = 'r'
	}
	if f.CanWrite() {
		b[1] = 'w'
	}
	if f.CanExecute() {
		b[2] = 'x'
	}
	return string(b)
}

// ParsePerms converts a permission string such as "r-xp" into flags. Missing
// or unknown characters are treated as not granted.
func ParsePerms(perms string) ProtectionFlags {
	var f ProtectionFlags
	if len(perms) > 0 && perms[0] == 'r' {
		f |= ProtectionRead
	}
	if len(perms) > 1 && perms[1] == 'w' {
		f |= ProtectionWrite
	}
	if len(perms) > 2 && perms[2] == 'x' {
		f |= ProtectionExecute
	}
	return f
}

// ProtectionRegion records the protection of one contiguous range.
type ProtectionRegion struct {
	Address ProcessMemoryAddress
	Size    ProcessMemorySize
	Flags   ProtectionFlags

	// Native is the backend's own protection value, such as a PAGE_*
	// constant with its modifiers. Zero when the backend has none.
	Native uint32
}

// End returns the first address past the region.
func (r ProtectionRegion) End() ProcessMemoryAddress {
	return r.Address + ProcessMemoryAddress(r.Size)
}
