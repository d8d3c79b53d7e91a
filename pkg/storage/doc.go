// Package storage writes fetch results and downloaded artifacts to disk.
//
// The storage package handles:
//   - Writing indented, unescaped JSON documents with atomic replace
//   - Streaming binary artifacts (PDFs, archived HTML) through temporary files
//   - Skip-or-overwrite decisions for artifacts that already exist
//
// Usage:
//
//	if err := storage.WriteJSON(filepath.Join(outDir, "metadata.json"), meta); err != nil {
//	    return err
//	}
//
//	pdfs, err := storage.NewArtifactStore(filepath.Join(outDir, "pdfs"), overwrite)
//	if err != nil {
//	    return err
//	}
//	name := fmt.Sprintf("%04d_%s.pdf", i, storage.SanitizeName(entry.ArxivID, 120))
//	if !pdfs.ShouldSkip(name) {
//	    _, err = pdfs.Save(name, resp.Body)
//	}
package storage
