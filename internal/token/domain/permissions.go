package domain

import (
	"strings"
)

// Permissions is the set of rights a capability grants over its path.
type Permissions uint8

// Individual permission flags.
const (
	PermRead Permissions = 1 << iota
	PermWrite
	PermDelete
)

// PermAll grants every permission.
const PermAll = PermRead | PermWrite | PermDelete

// permissionLetters lists the pattern letters in their fixed order.
const permissionLetters = "rwd"

// PermissionsFrom builds a permission set from three independent flags.
func PermissionsFrom(read, write, del bool) Permissions {
	var p Permissions
	if read {
		p |= PermRead
	}
	if write {
		p |= PermWrite
	}
	if del {
		p |= PermDelete
	}
	return p
}

// ParsePermissions parses a pattern such as "r", "rw" or "rwd". Letters must appear at most
// once and in r, w, d order. A malformed pattern yields no permissions and ErrInvalidPermissions.
func ParsePermissions(s string) (Permissions, error) {
	if len(s) > len(permissionLetters) {
		return 0, ErrInvalidPermissions
	}

	var p Permissions
	cursor := 0
	for i := 0; i < len(s); i++ {
		idx := strings.IndexByte(permissionLetters[cursor:], s[i])
		if idx < 0 {
			return 0, ErrInvalidPermissions
		}
		cursor += idx
		p |= 1 << cursor
		cursor++
	}
	return p, nil
}

// String renders the permission set as its fixed-order pattern.
func (p Permissions) String() string {
	var b strings.Builder
	for i := 0; i < len(permissionLetters); i++ {
		if p&(1<<i) != 0 {
			b.WriteByte(permissionLetters[i])
		}
	}
	return b.String()
}

// Has reports whether p is a superset of required.
func (p Permissions) Has(required Permissions) bool {
	return p&required == required
}

// CanRead reports whether the read permission is present.
func (p Permissions) CanRead() bool { return p.Has(PermRead) }

// CanWrite reports whether the write permission is present.
func (p Permissions) CanWrite() bool { return p.Has(PermWrite) }

// CanDelete reports whether the delete permission is present.
func (p Permissions) CanDelete() bool { return p.Has(PermDelete) }

// MarshalText implements encoding.TextMarshaler.
func (p Permissions) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Permissions) UnmarshalText(text []byte) error {
	parsed, err := ParsePermissions(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
