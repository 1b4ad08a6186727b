package syscall

import "bytes"

// utsFieldLen is the size of every field in struct utsname, NUL included.
const utsFieldLen = 65

// UtsnameSize is the size of the buffer uname fills.
const UtsnameSize = 6 * utsFieldLen

// Utsname is the system identification returned by uname.
type Utsname struct {
	Sysname    string
	Nodename   string
	Release    string
	Version    string
	Machine    string
	Domainname string
}

func (u Utsname) put(buf []byte) {
	clear(buf[:UtsnameSize])
	for i, s := range []string{u.Sysname, u.Nodename, u.Release, u.Version, u.Machine, u.Domainname} {
		field := buf[i*utsFieldLen : (i+1)*utsFieldLen-1]
		copy(field, s)
	}
}

// ParseUtsname decodes a buffer filled by uname.
func ParseUtsname(buf []byte) Utsname {
	field := func(i int) string {
		if len(buf) < (i+1)*utsFieldLen {
			return ""
		}
		f := buf[i*utsFieldLen : (i+1)*utsFieldLen]
		if n := bytes.IndexByte(f, 0); n >= 0 {
			f = f[:n]
		}
		return string(f)
	}
	return Utsname{
		Sysname:    field(0),
		Nodename:   field(1),
		Release:    field(2),
		Version:    field(3),
		Machine:    field(4),
		Domainname: field(5),
	}
}
