package qmake

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/goplus/qmk/internal/env"
)

// DefaultQmake is the generator name used when nothing better is found; it
// is looked up in PATH at launch time.
const DefaultQmake = "qmake"

// StatFS is the filesystem on which candidate tool paths are checked.
// Builds targeting another machine supply that machine's view.
type StatFS interface {
	Stat(name string) (fs.FileInfo, error)
}

type osFS struct{}

func (osFS) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }

// LocalFS checks paths on the local machine.
var LocalFS StatFS = osFS{}

// ResolveQmake picks the qmake binary. An existing override path wins over
// an existing $QTDIR/bin/qmake, which wins over DefaultQmake. A nil fsys
// means LocalFS.
func ResolveQmake(vars env.Vars, override string, windows bool, fsys StatFS) (string, error) {
	if fsys == nil {
		fsys = LocalFS
	}
	if override != "" {
		ok, err := exists(fsys, override)
		if err != nil {
			return "", &ToolError{Path: override, Err: err}
		}
		if ok {
			return override, nil
		}
	}
	if qtdir, ok := vars["QTDIR"]; ok && qtdir != "" {
		candidate := qtdirQmake(qtdir, windows)
		ok, err := exists(fsys, candidate)
		if err != nil {
			return "", &ToolError{Path: candidate, Err: err}
		}
		if ok {
			return candidate, nil
		}
	}
	return DefaultQmake, nil
}

// qtdirQmake joins qtdir with bin/qmake using the target platform's
// separator, since the target need not be the host.
func qtdirQmake(qtdir string, windows bool) string {
	if windows {
		return strings.TrimRight(qtdir, `\/`) + `\bin\qmake.exe`
	}
	return strings.TrimRight(qtdir, "/") + "/bin/qmake"
}

func exists(fsys StatFS, name string) (bool, error) {
	_, err := fsys.Stat(name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
