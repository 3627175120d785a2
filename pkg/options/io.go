package options

import (
	"io"
	"os"
	"path/filepath"

	"github.com/matzehuels/qlayout/pkg/errors"
)

// Write formats v and writes it to w followed by a newline.
func Write(w io.Writer, v Value) error {
	s, err := Format(v)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, s+"\n"); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write options")
	}
	return nil
}

// Export writes v to path. The value is formatted first and written to a
// temporary file in the same directory that is then renamed over path, so
// an unsupported value or a failed write leaves any existing file intact.
func Export(path string, v Value) error {
	s, err := Format(v)
	if err != nil {
		return err
	}
	return writeAtomic(path, []byte(s+"\n"))
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create temp file in %s", dir)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", name)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return errors.Wrap(errors.ErrCodeInternal, err, "close %s", name)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "rename to %s", path)
	}
	return nil
}

// Read parses one literal from r.
func Read(r io.Reader) (Value, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Value{}, errors.Wrap(errors.ErrCodeInternal, err, "read options")
	}
	return Parse(string(data))
}

// Import reads an option file. A missing file fails with FILE_NOT_FOUND and
// a syntax error with MALFORMED_LITERAL; the two are never conflated.
func Import(path string) (Value, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Value{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "option file %s not found", path)
		}
		return Value{}, errors.Wrap(errors.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer f.Close()
	v, err := Read(f)
	if err != nil {
		return Value{}, errors.Wrap(errors.GetCode(err), err, "import %s", path)
	}
	return v, nil
}

// ImportMap imports an option file whose top-level literal must be a map.
func ImportMap(path string) (*Map, error) {
	v, err := Import(path)
	if err != nil {
		return nil, err
	}
	m, ok := v.Map()
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "%s holds a %s, want a map", path, v.Kind())
	}
	return m, nil
}

// ImportLists imports an option file and converts every tuple into a list.
func ImportLists(path string) (Value, error) {
	v, err := Import(path)
	if err != nil {
		return Value{}, err
	}
	return TuplesToLists(v), nil
}
