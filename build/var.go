package build

// Release indicates which variant of the binary is running: "standard",
// "dev", or "testing". It defaults to "standard"; only tests assign other
// values.
var Release = "standard"

// DEBUG, when true, turns Critical and Severe into panics instead of
// stack-dump-and-continue. It defaults to false and does not follow
// Release; only tests assign it.
var DEBUG = false

// Var represents a variable whose value depends on which Release is
// running. None of the fields may be nil, and all fields must share the
// same underlying type.
type Var struct {
	Standard interface{}
	Dev      interface{}
	Testing  interface{}
}

// Select returns the field of v that corresponds to the current Release.
func Select(v Var) interface{} {
	if v.Standard == nil || v.Dev == nil || v.Testing == nil {
		panic("nil value in build variable")
	}
	switch Release {
	case "standard":
		return v.Standard
	case "dev":
		return v.Dev
	case "testing":
		return v.Testing
	default:
		panic("unrecognized Release: " + Release)
	}
}
