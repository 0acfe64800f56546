package build

import (
	"fmt"
	"os"
	"runtime/debug"
)

// Critical should be called if a sanity check has failed, indicating
// developer error rather than an operational failure. It prints the
// current stack to help locate the bug and panics when DEBUG is set.
func Critical(v ...interface{}) {
	s := "Critical error: " + fmt.Sprintln(v...) + "please file a bug report\n"
	if Release != "testing" {
		debug.PrintStack()
		os.Stderr.WriteString(s)
	}
	if DEBUG {
		panic(s)
	}
}

// Severe prints a message indicating a significant but non-fatal problem,
// such as a failing disk or a random number generator error. Severe panics
// when DEBUG is set, same as Critical, but is reserved for operational
// rather than developer errors.
func Severe(v ...interface{}) {
	s := "Severe error: " + fmt.Sprintln(v...)
	if Release != "testing" {
		debug.PrintStack()
		os.Stderr.WriteString(s)
	}
	if DEBUG {
		panic(s)
	}
}
