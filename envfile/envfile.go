// Package envfile reads and writes KEY=VALUE environment files, keeping the
// order keys appear in so a rewrite only changes the lines that changed.
package envfile

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

var (
	ErrFileNotFound      = errors.New("environment file not found")
	ErrFileAlreadyExists = errors.New("environment file already exists")
	ErrKeyNotFound       = errors.New("key not found")
	ErrInvalidEntry      = errors.New("invalid entry")
)

// ValidateEntry rejects a key or value that would not read back as the same
// single line: keys may not contain '=' or line breaks, values may not
// contain line breaks.
func ValidateEntry(key, value string) error {
	if strings.ContainsAny(key, "=\r\n") {
		return fmt.Errorf("%w: key %q may not contain '=' or line breaks", ErrInvalidEntry, key)
	}
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%w: value for %s may not contain line breaks", ErrInvalidEntry, key)
	}
	return nil
}

// KeyNotFoundError is returned by Lookup for a missing or empty key.
type KeyNotFoundError struct {
	Key string
}

func (ke KeyNotFoundError) Error() string {
	return fmt.Sprintf("Key '%s' not found.", ke.Key)
}

func (ke KeyNotFoundError) Is(target error) bool {
	return target == ErrKeyNotFound
}

// Map is an insertion-ordered string map.
type Map struct {
	keys   []string
	values map[string]string
}

func NewMap() *Map {
	return &Map{
		values: make(map[string]string),
	}
}

// Set inserts the key at the end, or replaces the value in place when the
// key is already present.
func (m *Map) Set(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *Map) Get(key string) (string, bool) {
	val, ok := m.values[key]
	return val, ok
}

// Lookup returns the value for key, treating an empty value the same as a
// missing one.
func (m *Map) Lookup(key string) (string, error) {
	val := m.values[key]
	if val == "" {
		return "", KeyNotFoundError{Key: key}
	}
	return val, nil
}

func (m *Map) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *Map) Len() int {
	return len(m.keys)
}

// Marshal renders one KEY=VALUE line per entry, each terminated by a newline.
func (m *Map) Marshal() []byte {
	buf := &bytes.Buffer{}
	for _, key := range m.keys {
		buf.WriteString(key)
		buf.WriteByte('=')
		buf.WriteString(m.values[key])
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Parse reads KEY=VALUE lines. The split is on the first '=', so values may
// contain '='. Lines without one are skipped.
func Parse(data []byte) *Map {
	m := NewMap()
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		if len(line) == 0 {
			continue
		}
		key, value, ok := bytes.Cut(line, []byte("="))
		if !ok {
			continue
		}
		m.Set(string(key), string(value))
	}
	return m
}

func ReadFile(filename string) (*Map, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", filename, ErrFileNotFound)
		}
		return nil, err
	}
	return Parse(data), nil
}

func WriteFile(filename string, m *Map) error {
	return WriteAtomic(filename, m.Marshal(), 0o600)
}

// SetKey upserts a single key in an existing file. The file must already
// exist. existed reports whether the key held a non-empty value before.
func SetKey(filename, key, value string) (existed bool, err error) {
	if err := ValidateEntry(key, value); err != nil {
		return false, err
	}
	m, err := ReadFile(filename)
	if err != nil {
		return false, err
	}
	prev, _ := m.Get(key)
	m.Set(key, value)
	if err := WriteFile(filename, m); err != nil {
		return false, err
	}
	return prev != "", nil
}

// Create makes a new empty file, failing if anything exists at the path.
func Create(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", filename, ErrFileAlreadyExists)
		}
		return err
	}
	return f.Close()
}
