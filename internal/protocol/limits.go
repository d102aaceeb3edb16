package protocol

const (
	DefaultMaxSize  = 16 * 1024 * 1024
	DefaultMaxList  = 64 * 1024
	DefaultMaxDepth = 64
)

// Limits bound the resources of a single Marshal or Unmarshal call. Zero
// fields fall back to the defaults.
type Limits struct {
	// MaxSize caps the encoded size of a message, its nesting included, and
	// the declared length of any text or binary value.
	MaxSize int
	// MaxList caps the element count of any list.
	MaxList int
	// MaxDepth caps struct nesting; the top-level struct has depth 1.
	MaxDepth int
}

func DefaultLimits() Limits {
	return Limits{
		MaxSize:  DefaultMaxSize,
		MaxList:  DefaultMaxList,
		MaxDepth: DefaultMaxDepth,
	}
}

func (l Limits) normalize() Limits {
	if l.MaxSize <= 0 {
		l.MaxSize = DefaultMaxSize
	}
	if l.MaxList <= 0 {
		l.MaxList = DefaultMaxList
	}
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultMaxDepth
	}
	return l
}
