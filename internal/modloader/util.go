package modloader

import (
	"archive/zip"
	"fmt"
	"io"
	"runtime"
	"strings"
)

func isWindows() bool {
	return runtime.GOOS == "windows"
}

// jarMainClass reads Main-Class out of a jar's META-INF/MANIFEST.MF.
func jarMainClass(jarPath string) (string, error) {
	r, err := zip.OpenReader(jarPath)
	if err != nil {
		return "", fmt.Errorf("opening jar %s: %w", jarPath, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "META-INF/MANIFEST.MF" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("reading manifest in %s: %w", jarPath, err)
		}
		defer rc.Close()

		buf := make([]byte, f.UncompressedSize64)
		if _, err := io.ReadFull(rc, buf); err != nil {
			return "", fmt.Errorf("reading manifest in %s: %w", jarPath, err)
		}
		for _, line := range strings.Split(string(buf), "\n") {
			line = strings.TrimRight(line, "\r")
			if strings.HasPrefix(line, "Main-Class:") {
				return strings.TrimSpace(strings.TrimPrefix(line, "Main-Class:")), nil
			}
		}
	}
	return "", fmt.Errorf("no Main-Class found in %s", jarPath)
}
