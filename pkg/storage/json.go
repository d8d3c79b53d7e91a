package storage

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	errs "socialfetch/pkg/errors"
)

// EncodeJSON writes v as indented JSON without HTML escaping, so non-ASCII
// text and URLs come out as written
func EncodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return errs.Wrap(errs.ErrorTypeParsing, err, "failed to encode JSON")
	}
	return nil
}

// WriteJSON encodes v to path, creating parent directories. The file is
// replaced atomically so readers never see a partial document.
func WriteJSON(path string, v any) error {
	var buf bytes.Buffer
	if err := EncodeJSON(&buf, v); err != nil {
		return err
	}
	return writeFileAtomic(path, buf.Bytes())
}

// ReadJSON decodes the document at path into v
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to read "+path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errs.Wrap(errs.ErrorTypeParsing, err, "failed to parse "+path)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to create directory "+dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to create temporary file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to write "+path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to sync "+path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to close "+path)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errs.Wrap(errs.ErrorTypeFilesystem, err, "failed to rename temporary file")
	}
	return nil
}
