package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Namespace tells which store assigned an ID.
type Namespace uint8

const (
	// NoNamespace is the zero ID.
	NoNamespace Namespace = iota
	// LocalNamespace ids are generated by the mirror (e.g. "berita_1712345678901_k3j2h1a_9x8w_7v").
	LocalNamespace
	// RemoteNamespace ids are numeric keys assigned by the record store.
	RemoteNamespace
)

// ID identifies a News or Business record. The local and remote namespaces are
// disjoint: a Local id never equals a Remote id, even when their text matches.
type ID struct {
	ns     Namespace
	local  string
	remote int64
}

// Local wraps a mirror-generated identifier.
func Local(s string) ID { return ID{ns: LocalNamespace, local: s} }

// Remote wraps a record store key.
func Remote(n int64) ID { return ID{ns: RemoteNamespace, remote: n} }

// ParseID interprets a path or form value: all digits is a remote key,
// anything else non-empty is a local id.
func ParseID(s string) ID {
	s = strings.TrimSpace(s)
	if s == "" {
		return ID{}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 && isDigits(s) {
		return Remote(n)
	}
	return Local(s)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func (id ID) Namespace() Namespace { return id.ns }
func (id ID) IsZero() bool { return id.ns == NoNamespace }
func (id ID) IsLocal() bool { return id.ns == LocalNamespace }
func (id ID) IsRemote() bool { return id.ns == RemoteNamespace }

// RemoteKey returns the numeric key and whether id is remote.
func (id ID) RemoteKey() (int64, bool) { return id.remote, id.ns == RemoteNamespace }

// LocalKey returns the mirror id and whether id is local.
func (id ID) LocalKey() (string, bool) { return id.local, id.ns == LocalNamespace }

// Equal compares namespace and value. Ids from different namespaces are never equal.
func (id ID) Equal(other ID) bool {
	if id.ns != other.ns {
		return false
	}
	switch id.ns {
	case LocalNamespace:
		return id.local == other.local
	case RemoteNamespace:
		return id.remote == other.remote
	}
	return true
}

// Key is a map key unique across namespaces ("l:<id>" or "r:<n>").
func (id ID) Key() string {
	switch id.ns {
	case LocalNamespace:
		return "l:" + id.local
	case RemoteNamespace:
		return "r:" + strconv.FormatInt(id.remote, 10)
	}
	return ""
}

func (id ID) String() string {
	switch id.ns {
	case LocalNamespace:
		return id.local
	case RemoteNamespace:
		return strconv.FormatInt(id.remote, 10)
	}
	return ""
}

// MarshalJSON writes local ids as strings and remote ids as numbers.
func (id ID) MarshalJSON() ([]byte, error) {
	switch id.ns {
	case LocalNamespace:
		return json.Marshal(id.local)
	case RemoteNamespace:
		return []byte(strconv.FormatInt(id.remote, 10)), nil
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts a JSON number (remote) or string (local). Numeric
// strings stay local: that is how the mirror stores its own ids.
func (id *ID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		*id = ID{}
		return nil
	}
	if s[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		if v == "" {
			*id = ID{}
			return nil
		}
		*id = Local(v)
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("invalid id %s", s)
		}
		n = int64(f)
	}
	*id = Remote(n)
	return nil
}
