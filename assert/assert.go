package assert

import "github.com/oomph-ac/relay/oerror"

// IsTrue panics with a RelayError if ok is false. It is only used for conditions that no client or server
// input can produce.
func IsTrue(ok bool, message string, args ...any) {
	if !ok {
		panic(oerror.New(message, args...))
	}
}
