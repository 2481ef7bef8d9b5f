package schema

import (
	"fmt"
	"strings"
)

// QName is a module qualified name.
type QName struct {
	Module string
	Name   string
}

func Q(module, name string) QName {
	return QName{Module: module, Name: name}
}

func (q QName) IsZero() bool {
	return q.Module == "" && q.Name == ""
}

func (q QName) String() string {
	if q.Module == "" {
		return q.Name
	}
	return q.Module + ":" + q.Name
}

func (q QName) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

func (q *QName) UnmarshalText(d []byte) error {
	qq, err := ParseQName(string(d), "")
	if err != nil {
		return err
	}
	*q = qq
	return nil
}

// ParseQName parses "module:name" or "name". An unqualified name takes
// defaultModule.
func ParseQName(s, defaultModule string) (QName, error) {
	mod, name, ok := strings.Cut(s, ":")
	if !ok {
		name, mod = mod, defaultModule
	}
	if name == "" || strings.ContainsAny(name, ":/[]") {
		return QName{}, fmt.Errorf("invalid qualified name %q", s)
	}
	if ok && mod == "" {
		return QName{}, fmt.Errorf("invalid qualified name %q: empty module", s)
	}
	return QName{Module: mod, Name: name}, nil
}

// ClassName returns the generated class name for a schema identifier:
// "foo-bar.baz_qux" becomes "FooBarBazQux".
func ClassName(local string) string {
	var b strings.Builder
	up := true
	for _, r := range local {
		switch r {
		case '-', '_', '.':
			up = true
			continue
		}
		if up && 'a' <= r && r <= 'z' {
			r -= 'a' - 'A'
		}
		up = false
		b.WriteRune(r)
	}
	return b.String()
}
