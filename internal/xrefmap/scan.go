package xrefmap

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// span is the half-open byte range [Start, End) of one reference object.
type span struct {
	Start int64
	End   int64
}

type indexEntry struct {
	UID   string
	Start int64
	End   int64
}

type frame struct {
	kind      byte // '{' or '['
	expectKey bool
	key       string
}

// scanReferences indexes every object directly inside the top-level
// "references" array that carries a non-empty string "uid". The first span of
// a uid wins. skipped counts the reference objects without one.
func scanReferences(r io.Reader) ([]indexEntry, int, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	var (
		stack    []frame
		entries  []indexEntry
		skipped  int
		seen     = map[string]bool{}
		offset   int64 = -1
		refDepth       = -1 // stack depth of the references array
		objStart int64
		objUID   string
		sawRoot  bool
		sawRefs  bool
	)

	for {
		b, err := br.ReadByte()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		offset++

		switch b {
		case ' ', '\t', '\r', '\n', ',':
			if b == ',' && len(stack) > 0 && stack[len(stack)-1].kind == '{' {
				stack[len(stack)-1].expectKey = true
			}
			continue
		case ':':
			if len(stack) == 0 || stack[len(stack)-1].kind != '{' {
				return nil, 0, fmt.Errorf("unexpected ':' at offset %d", offset)
			}
			stack[len(stack)-1].expectKey = false
			continue
		case '"':
			raw, n, err := readString(br)
			if err != nil {
				return nil, 0, fmt.Errorf("string at offset %d: %w", offset, err)
			}
			start := offset
			offset += n
			if len(stack) == 0 {
				return nil, 0, fmt.Errorf("top-level value must be an object")
			}
			top := &stack[len(stack)-1]
			if top.kind == '{' && top.expectKey {
				key, err := decodeString(raw)
				if err != nil {
					return nil, 0, fmt.Errorf("key at offset %d: %w", start, err)
				}
				top.key = key
				continue
			}
			if refDepth >= 0 && len(stack) == refDepth+1 && top.key == "uid" {
				uid, err := decodeString(raw)
				if err != nil {
					return nil, 0, fmt.Errorf("uid at offset %d: %w", start, err)
				}
				objUID = uid
			}
			continue
		case '{', '[':
			if len(stack) == 0 {
				if b != '{' || sawRoot {
					return nil, 0, fmt.Errorf("top-level value must be an object")
				}
				sawRoot = true
			}
			if len(stack) == 1 && b == '[' && stack[0].key == "references" {
				refDepth = len(stack) + 1
				sawRefs = true
			}
			if b == '{' && refDepth >= 0 && len(stack) == refDepth {
				objStart = offset
				objUID = ""
			}
			stack = append(stack, frame{kind: b, expectKey: b == '{'})
			continue
		case '}', ']':
			want := byte('{')
			if b == ']' {
				want = '['
			}
			if len(stack) == 0 || stack[len(stack)-1].kind != want {
				return nil, 0, fmt.Errorf("unbalanced %q at offset %d", b, offset)
			}
			stack = stack[:len(stack)-1]
			if b == '}' && refDepth >= 0 && len(stack) == refDepth {
				switch {
				case objUID == "":
					skipped++
				case !seen[objUID]:
					seen[objUID] = true
					entries = append(entries, indexEntry{UID: objUID, Start: objStart, End: offset + 1})
				}
				objUID = ""
			}
			if b == ']' && len(stack) == refDepth-1 {
				refDepth = -1
			}
			continue
		default:
			// Literals and numbers carry no structure.
			if len(stack) == 0 && offset < 3 && (b == 0xEF || b == 0xBB || b == 0xBF) {
				continue // UTF-8 byte order mark
			}
			if len(stack) == 0 {
				return nil, 0, fmt.Errorf("unexpected %q at offset %d", b, offset)
			}
		}
	}

	switch {
	case len(stack) != 0:
		return nil, 0, fmt.Errorf("unexpected end of input: %d unclosed containers", len(stack))
	case !sawRoot:
		return nil, 0, fmt.Errorf("empty document")
	case !sawRefs:
		return nil, 0, fmt.Errorf("missing top-level references array")
	}
	return entries, skipped, nil
}

// readString consumes a JSON string body after the opening quote and returns
// the raw quoted token and the number of bytes consumed.
func readString(br *bufio.Reader) ([]byte, int64, error) {
	raw := []byte{'"'}
	escaped := false
	for {
		c, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, 0, io.ErrUnexpectedEOF
			}
			return nil, 0, err
		}
		raw = append(raw, c)
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			return raw, int64(len(raw) - 1), nil
		}
	}
}

func decodeString(raw []byte) (string, error) {
	if !containsByte(raw, '\\') {
		return string(raw[1 : len(raw)-1]), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return s, nil
}

func containsByte(b []byte, c byte) bool {
	for _, x := range b {
		if x == c {
			return true
		}
	}
	return false
}
