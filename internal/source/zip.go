package source

import (
	"archive/zip"
	"bytes"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// IsZIP reports whether the name carries a .zip extension.
func IsZIP(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".zip")
}

// ExpandZIP opens a ZIP archive held in memory and returns one Source per
// regular member, in archive order. Member names are reduced to their base
// name so provenance never carries directory components. Nothing is written
// to the filesystem.
func ExpandZIP(name string, data []byte) ([]Source, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, eris.Wrapf(err, "zip: open archive %s", name)
	}

	var sources []Source
	for _, member := range r.File {
		if member.FileInfo().IsDir() {
			continue
		}
		rc, err := member.Open()
		if err != nil {
			return nil, eris.Wrapf(err, "zip: open member %s", member.Name)
		}
		data, err := io.ReadAll(rc)
		rc.Close() //nolint:errcheck
		if err != nil {
			return nil, eris.Wrapf(err, "zip: read member %s", member.Name)
		}
		sources = append(sources, Source{
			Name: path.Base(filepath.ToSlash(member.Name)),
			Data: data,
		})
	}
	return sources, nil
}
