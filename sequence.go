package p2pwire

import (
	"bytes"
	"strings"
)

// Sequence is the unconsumed remainder of a message body. Tokens are taken
// from the front, strictly left to right, by a single owner.
type Sequence struct {
	buf   []byte
	start int
	end   int
}

// SequenceOf spans the used bytes of b minus a trailing terminator. Call it
// only after Scan reported Complete.
func SequenceOf(b *Buffer) Sequence {
	return sequenceOf(b.Bytes())
}

func sequenceOf(p []byte) Sequence {
	end := len(p)
	if end > 0 && p[end-1] == terminator {
		end--
	}
	return Sequence{buf: p, end: end}
}

func (s *Sequence) Empty() bool {
	return s.start >= s.end
}

func (s *Sequence) Remaining() int {
	return s.end - s.start
}

// RawToken is one still escaped token. A quoted token includes both quotes.
type RawToken struct {
	buf   []byte
	start int
	end   int
}

func (t RawToken) Bytes() []byte {
	return t.buf[t.start:t.end]
}

func (t RawToken) Len() int {
	return t.end - t.start
}

func (t RawToken) Quoted() bool {
	return t.end > t.start && t.buf[t.start] == '"'
}

// NextRawToken cuts the next token off the front of s. On error s is left
// where it was.
func (s *Sequence) NextRawToken() (RawToken, error) {
	start, end, next, err := nextToken(s.buf, s.start, s.end)
	if err != nil {
		return RawToken{}, err
	}
	s.start = next
	return RawToken{buf: s.buf, start: start, end: end}, nil
}

// NextString reads and decodes the next token.
func (s *Sequence) NextString() (string, error) {
	tok, err := s.NextRawToken()
	if err != nil {
		return "", err
	}
	return tok.Decode()
}

// Strings decodes every remaining token.
func (s *Sequence) Strings() ([]string, error) {
	var out []string
	for !s.Empty() {
		v, err := s.NextString()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// nextToken returns the bounds of the token starting at start and the
// position of the token after it.
func nextToken(p []byte, start, end int) (tokStart, tokEnd, next int, err error) {
	if start >= end {
		return 0, 0, 0, ErrInvalidToken
	}
	if p[start] != '"' {
		i := bytes.IndexByte(p[start:end], ' ')
		if i < 0 {
			return start, end, end, nil
		}
		return start, start + i, start + i + 1, nil
	}

	closing, err := closingQuote(p, start+1, end)
	if err != nil {
		return 0, 0, 0, err
	}
	if closing == start+1 {
		return 0, 0, 0, ErrInvalidToken
	}
	next = closing + 1
	if next < end {
		if p[next] != ' ' {
			return 0, 0, 0, ErrInvalidToken
		}
		next++
	}
	return start, closing + 1, next, nil
}

// closingQuote finds the unescaped '"' ending a quoted body that begins at i.
func closingQuote(p []byte, i, end int) (int, error) {
	escaped := false
	for ; i < end; i++ {
		c := p[i]
		switch {
		case escaped:
			if c != '\\' && c != '*' {
				return 0, ErrInvalidToken
			}
			escaped = false
		case c == '"':
			return i, nil
		case c == '\\':
			escaped = true
		}
	}
	return 0, ErrInvalidToken
}

// Decode unescapes the token. Bare tokens come back verbatim; quoted tokens
// have their quotes stripped and \\ and \* pairs collapsed.
func (t RawToken) Decode() (string, error) {
	return decodeToken(t.Bytes())
}

func decodeToken(p []byte) (string, error) {
	if len(p) == 0 {
		return "", ErrInvalidToken
	}
	if p[0] != '"' {
		if bytes.IndexByte(p, ' ') >= 0 {
			return "", ErrInvalidToken
		}
		return string(p), nil
	}

	var sb strings.Builder
	sb.Grow(len(p))
	escaped := false
	for i := 1; i < len(p); i++ {
		c := p[i]
		switch {
		case escaped:
			if c != '\\' && c != '*' {
				return "", ErrInvalidToken
			}
			sb.WriteByte(c)
			escaped = false
		case c == '"':
			if i != len(p)-1 {
				return "", ErrInvalidToken
			}
			return sb.String(), nil
		case c == '\\':
			escaped = true
		default:
			sb.WriteByte(c)
		}
	}
	return "", ErrInvalidToken
}
