package cli

import (
	"os"
	"path/filepath"
	"regexp"
)

var cotahistNameRE = regexp.MustCompile(`(?i)^COTAHIST_A\d{4}\.ZIP$`)

// discoverZips lists the COTAHIST ZIPs in sourceDir, in directory order.
// Real discovery/URL-templating is an external collaborator per spec.md
// §1; this is the minimal filesystem glue the CLI needs to build an
// ExtractionRequest from a directory of already-downloaded files.
func discoverZips(sourceDir string) ([]string, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, err
	}
	var zips []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if cotahistNameRE.MatchString(e.Name()) {
			zips = append(zips, filepath.Join(sourceDir, e.Name()))
		}
	}
	return zips, nil
}
