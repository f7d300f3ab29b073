package kernel

// invariant panics with a scheduler-internal message when cond is false.
// Used only for conditions that indicate a bug in the kernel itself
// (corrupted queue links, a nil current task mid-schedule) — never for
// ordinary caller misuse, which always returns an Err instead.
func invariant(cond bool, msg string) {
	if !cond {
		panic("kernel: invariant violated: " + msg)
	}
}
