package errcode

import "errors"

// KindOf returns the kind of the first LayeredError in err's chain.
// Errors outside the taxonomy report KindCallback, since they can only
// originate from caller code.
func KindOf(err error) (Kind, bool) {
	if err == nil {
		return 0, false
	}
	var le *LayeredError
	if errors.As(err, &le) {
		return le.kind, true
	}
	return KindCallback, false
}

// IsTransient reports whether err degrades to a miss rather than failing the call.
func IsTransient(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindTransient
}
