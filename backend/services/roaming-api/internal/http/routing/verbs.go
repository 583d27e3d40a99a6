package routing

import "strings"

// Verb is an HTTP method, standard or extended. Safe and Idempotent are
// metadata only; the dispatcher does not enforce them.
type Verb struct {
	Name       string
	Safe       bool
	Idempotent bool
}

func (v Verb) String() string { return v.Name }

// Standard and extended verbs.
var (
	GET         = Verb{Name: "GET", Safe: true, Idempotent: true}
	DELETE      = Verb{Name: "DELETE", Idempotent: true}
	OPTIONS     = Verb{Name: "OPTIONS", Safe: true, Idempotent: true}
	COUNT       = Verb{Name: "COUNT", Safe: true, Idempotent: true}
	SET         = Verb{Name: "SET", Idempotent: true}
	CREATE      = Verb{Name: "CREATE"}
	RESERVE     = Verb{Name: "RESERVE"}
	SETEXPIRED  = Verb{Name: "SETEXPIRED", Idempotent: true}
	AUTHSTART   = Verb{Name: "AUTHSTART"}
	AUTHSTOP    = Verb{Name: "AUTHSTOP"}
	REMOTESTART = Verb{Name: "REMOTESTART"}
	REMOTESTOP  = Verb{Name: "REMOTESTOP"}
	SENDCDR     = Verb{Name: "SENDCDR"}
)

var knownVerbs = map[string]Verb{}

func init() {
	for _, v := range []Verb{GET, DELETE, OPTIONS, COUNT, SET, CREATE, RESERVE, SETEXPIRED,
		AUTHSTART, AUTHSTOP, REMOTESTART, REMOTESTOP, SENDCDR} {
		knownVerbs[v.Name] = v
	}
}

// LookupVerb returns the registered verb for an HTTP method name.
func LookupVerb(method string) (Verb, bool) {
	v, ok := knownVerbs[strings.ToUpper(method)]
	return v, ok
}
