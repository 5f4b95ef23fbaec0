package p2pwire

// ScanResult says whether a buffer holds a whole message and whether that
// message is well formed.
type ScanResult int

const (
	// Incomplete means the terminator has not arrived yet; read more bytes.
	Incomplete ScanResult = iota
	// Complete means a terminated message that passed the escape walk.
	Complete
	// Invalid means a terminated message that violates the escape grammar.
	Invalid
	// Overflow means the buffer filled up without a terminator.
	Overflow
)

func (r ScanResult) String() string {
	switch r {
	case Incomplete:
		return "incomplete"
	case Complete:
		return "complete"
	case Invalid:
		return "invalid"
	case Overflow:
		return "overflow"
	}
	return "unknown"
}

func (r ScanResult) NeedMore() bool {
	return r == Incomplete
}

func (r ScanResult) Valid() bool {
	return r == Complete
}

// Err maps the terminal failure results to their sentinel errors.
func (r ScanResult) Err() error {
	switch r {
	case Invalid:
		return ErrInvalidMessage
	case Overflow:
		return ErrMessageTooLarge
	}
	return nil
}

// Scan inspects the used bytes of b. It never modifies the buffer.
func Scan(b *Buffer) ScanResult {
	return scan(b.Bytes())
}

func scan(p []byte) ScanResult {
	if len(p) == 0 {
		return Incomplete
	}
	if p[len(p)-1] != terminator {
		if len(p) >= MaxBufferSize {
			return Overflow
		}
		return Incomplete
	}
	if !validEscapes(p) {
		return Invalid
	}
	return Complete
}

// validEscapes walks p tracking '*' delimited raw spans. Inside a raw span a
// backslash must be followed by '\' or '*'.
func validEscapes(p []byte) bool {
	var escaped, raw bool
	for _, c := range p {
		switch {
		case escaped:
			if c != '\\' && c != '*' {
				return false
			}
			escaped = false
		case raw:
			switch c {
			case '\\':
				escaped = true
			case '*':
				raw = false
			}
		case c == '*':
			raw = true
		}
	}
	return true
}
