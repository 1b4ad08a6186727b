package syscall

import "strconv"

// Errno is a system call error number. Results returned to user space carry
// it negated.
type Errno int

const (
	EPERM  = Errno(1)
	ENOENT = Errno(2)
	ESRCH  = Errno(3)
	EINTR  = Errno(4)
	EIO    = Errno(5)
	EBADF  = Errno(9)
	EAGAIN = Errno(11)
	ENOMEM = Errno(12)
	EACCES = Errno(13)
	EFAULT = Errno(14)
	EBUSY  = Errno(16)
	EEXIST = Errno(17)
	EINVAL = Errno(22)
	EMFILE = Errno(24)
	ENOSYS = Errno(38)
)

var errnoNames = map[Errno]string{
	EPERM:  "operation not permitted",
	ENOENT: "no such file or directory",
	ESRCH:  "no such process",
	EINTR:  "interrupted system call",
	EIO:    "input/output error",
	EBADF:  "bad file descriptor",
	EAGAIN: "resource temporarily unavailable",
	ENOMEM: "cannot allocate memory",
	EACCES: "permission denied",
	EFAULT: "bad address",
	EBUSY:  "device or resource busy",
	EEXIST: "file exists",
	EINVAL: "invalid argument",
	EMFILE: "too many open files",
	ENOSYS: "function not implemented",
}

func (e Errno) Error() string {
	if s, ok := errnoNames[e]; ok {
		return s
	}
	return "errno " + strconv.Itoa(int(e))
}

// Return encodes e the way the kernel hands it back in rax.
func (e Errno) Return() int64 {
	return -int64(e)
}
