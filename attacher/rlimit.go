package attacher

import (
	"massattach/errors"

	"golang.org/x/sys/unix"
)

// defaultFilenoRlimit is applied when Options.MaxFilenoRlimit is zero.
const defaultFilenoRlimit = 300_000

// raiseRlimits raises the per-process memory-lock limit to unlimited (BPF
// map and program memory is charged against it pre-5.11 kernels) and the
// open-files limit to maxFileno (or defaultFilenoRlimit if zero). Both are
// process-wide effects; callers may opt out via Options.SkipRlimits.
func raiseRlimits(maxFileno uint64) error {
	memlock := unix.Rlimit{Cur: unix.RLIM_INFINITY, Max: unix.RLIM_INFINITY}
	if err := unix.Setrlimit(unix.RLIMIT_MEMLOCK, &memlock); err != nil {
		return errors.Wrap(err, errors.ErrResourceLimit, "raise memlock rlimit")
	}

	if maxFileno == 0 {
		maxFileno = defaultFilenoRlimit
	}
	nofile := unix.Rlimit{Cur: maxFileno, Max: maxFileno}
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &nofile); err != nil {
		return errors.Wrap(err, errors.ErrResourceLimit, "raise open-files rlimit")
	}

	return nil
}
