package transform

// Mapping rewrites a single byte. Implementations must be total and depend
// only on the input byte.
type Mapping interface {
	Map(b byte) byte
}

// MappingFunc is a [Mapping] represented by its Map method.
type MappingFunc func(b byte) byte

// Map satisfies [Mapping].
func (fn MappingFunc) Map(b byte) byte { return fn(b) }

// Table is a precomputed Mapping over every byte value.
type Table [256]byte

// Map satisfies [Mapping].
func (t *Table) Map(b byte) byte { return t[b] }

// NewTable evaluates m once for every byte value.
func NewTable(m Mapping) Table {
	var t Table
	for i := range t {
		t[i] = m.Map(byte(i))
	}
	return t
}

// Identity returns a table that leaves every byte unchanged.
func Identity() Table {
	var t Table
	for i := range t {
		t[i] = byte(i)
	}
	return t
}

// Substitute returns a table that rewrites from to to and leaves every other
// byte unchanged.
func Substitute(from, to byte) Table {
	t := Identity()
	t[from] = to
	return t
}

// SemicolonToColon rewrites ';' (0x3B) to ':' (0x3A).
var SemicolonToColon = Substitute(';', ':')
