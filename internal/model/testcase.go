package model

// Kind is the payload family a test case exercises.
type Kind string

const (
	KindSQL Kind = "sql"
	KindXSS Kind = "xss"
)

// Kinds lists the payload families in the order they are exercised.
var Kinds = []Kind{KindSQL, KindXSS}

// TestCase is a single mutated request: Param carries Payload and URL is the
// fully built request target.
type TestCase struct {
	Kind    Kind
	Param   string
	Payload string
	URL     string
	// Origin is the page URL or form action the case was derived from.
	Origin string
}
