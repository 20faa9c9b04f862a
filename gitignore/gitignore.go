package gitignore

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/dasanik2001/manage-env/envfile"
)

const DefaultFilename = ".gitignore"

type Outcome int

const (
	AlreadyPresent Outcome = iota
	Created
	Appended
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Appended:
		return "appended"
	default:
		return "already present"
	}
}

// EnsureIgnored makes sure name appears in the ignore file at path. The
// check is a plain substring match on the whole file, so calling it again
// with the same name never adds a second line.
func EnsureIgnored(path, name string) (Outcome, error) {
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := envfile.WriteAtomic(path, []byte(name), 0o644); err != nil {
			return AlreadyPresent, err
		}
		return Created, nil
	} else if err != nil {
		return AlreadyPresent, err
	}

	existing := string(content)
	if strings.Contains(existing, name) {
		return AlreadyPresent, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return AlreadyPresent, err
	}
	defer f.Close()

	line := name + "\n"
	if existing != "" && !strings.HasSuffix(existing, "\n") {
		line = "\n" + line
	}
	if _, err := f.WriteString(line); err != nil {
		return AlreadyPresent, err
	}
	return Appended, f.Close()
}
