package storage

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Separator delimits path segments in object keys.
const Separator = "/"

// ByteRange is an inclusive byte interval used for partial reads.
type ByteRange struct {
	Start uint64
	End   uint64
}

// Validate returns ErrInvalidRange if the range starts after it ends.
func (r ByteRange) Validate() error {
	if r.Start > r.End {
		return fmt.Errorf("%w: %d-%d", ErrInvalidRange, r.Start, r.End)
	}
	return nil
}

// Header renders the range in HTTP Range header form.
func (r ByteRange) Header() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

// ParseRange parses a "bytes=start-end" header value.
func ParseRange(header string) (*ByteRange, error) {
	value, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRange, header)
	}
	from, to, ok := strings.Cut(value, "-")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRange, header)
	}
	start, err := strconv.ParseUint(from, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRange, header)
	}
	end, err := strconv.ParseUint(to, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRange, header)
	}
	r := &ByteRange{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// ValidateKey rejects empty keys.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	return nil
}

// Segments splits key on the separator, dropping empty segments.
func Segments(key string) []string {
	return strings.FieldsFunc(key, func(r rune) bool { return r == '/' })
}

// DirectoryKey normalizes key into a directory marker key: internal empty
// segments are removed and exactly one trailing separator is appended.
func DirectoryKey(key string) (string, error) {
	segments := Segments(key)
	if len(segments) == 0 {
		return "", fmt.Errorf("%w: %q has no path segments", ErrInvalidKey, key)
	}
	return strings.Join(segments, Separator) + Separator, nil
}

// MarkerKey returns the probe key used when key itself is missing, or false
// when key already ends with the separator.
func MarkerKey(key string) (string, bool) {
	if strings.HasSuffix(key, Separator) {
		return "", false
	}
	return key + Separator, true
}

// ChildNames reduces a recursive key listing to the immediate children of
// prefix. Each key drops as many segments as prefix has and keeps the first
// remaining one; keys with nothing left (the prefix marker itself) are
// skipped. Names are de-duplicated in first-seen order.
func ChildNames(prefix string, keys []string) []string {
	drop := len(Segments(prefix))
	seen := make(map[string]struct{}, len(keys))
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		segments := Segments(key)
		if len(segments) <= drop {
			continue
		}
		name := segments[drop]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// SortedChunks returns a copy of chunks ordered by ascending part number.
func SortedChunks(chunks []Chunk) []Chunk {
	sorted := slices.Clone(chunks)
	slices.SortFunc(sorted, func(a, b Chunk) int { return a.Number - b.Number })
	return sorted
}
