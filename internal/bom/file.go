package bom

import (
	"os"

	"github.com/rotisserie/eris"
)

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "bom: open %s", path)
	}
	return f, nil
}
