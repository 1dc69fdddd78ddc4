package badge

// Metadata describes the badge collection.
type Metadata struct {
	Owner   [20]byte
	BaseURI string
	Name    string
	Symbol  string
}

type storedToken struct {
	Owner  [20]byte
	Burned bool
}
