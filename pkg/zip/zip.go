// Package zip bundles session images into a downloadable archive.
package zip

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Asset is one file placed in the archive.
type Asset struct {
	Filename string
	MIME     string
	Data     []byte
	Modified time.Time
}

// Write streams assets into w as a zip archive. Duplicate names get a numeric
// suffix so no entry is shadowed.
func Write(w io.Writer, assets []Asset) error {
	zw := zip.NewWriter(w)
	used := make(map[string]int, len(assets))
	for _, asset := range assets {
		name := uniqueName(used, asset.Filename)
		header := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: asset.Modified}
		if strings.HasPrefix(asset.MIME, "image/") && asset.MIME != "image/svg+xml" {
			// already compressed
			header.Method = zip.Store
		}
		fw, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("zip: create %s: %w", name, err)
		}
		if _, err := fw.Write(asset.Data); err != nil {
			return fmt.Errorf("zip: write %s: %w", name, err)
		}
	}
	return zw.Close()
}

func uniqueName(used map[string]int, name string) string {
	name = strings.TrimLeft(path.Clean("/"+strings.ReplaceAll(name, "\\", "/")), "/")
	if name == "" {
		name = "file"
	}
	n := used[name]
	used[name] = n + 1
	if n == 0 {
		return name
	}
	ext := path.Ext(name)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), n+1, ext)
}
