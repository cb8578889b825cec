package download

import (
	"fmt"
	"strings"

	"github.com/brdata/pipeline/domain"
)

// Planner is the (doc_type, year) -> URL list function spec.md §1 and §6
// treat as an opaque external collaborator ("URL templating for the
// regulatory source"). DefaultCVMPlanner implements the pattern
// documented in spec.md §6 so the repository is runnable end to end;
// callers needing a different source simply supply their own Planner.
type Planner func(docType string, year int) []domain.DownloadAssignment

// DefaultCVMPlanner builds assignments against the CVM base URL pattern
// from spec.md §6: {base}/dados/CIA_ABERTA/DOC/{doc_type}/DADOS/{doc_type_lower}_cia_aberta_{yyyy}.zip
func DefaultCVMPlanner(baseURL string) Planner {
	return func(docType string, year int) []domain.DownloadAssignment {
		lower := strings.ToLower(docType)
		filename := fmt.Sprintf("%s_cia_aberta_%d.zip", lower, year)
		url := fmt.Sprintf("%s/dados/CIA_ABERTA/DOC/%s/DADOS/%s", strings.TrimRight(baseURL, "/"), docType, filename)
		return []domain.DownloadAssignment{{
			DocType:       docType,
			Year:          year,
			URL:           url,
			LocalFilename: filename,
		}}
	}
}

// BuildPlan validates every (docType, year) pair via domain.ValidateDocType
// and assembles a DownloadPlan from the given Planner (spec.md §4.8:
// "these validators run before any side-effecting work").
func BuildPlan(planner Planner, docTypes []string, years []int) (domain.DownloadPlan, error) {
	var assignments []domain.DownloadAssignment
	for _, docType := range docTypes {
		for _, year := range years {
			if err := domain.ValidateDocType(docType, year); err != nil {
				return domain.DownloadPlan{}, err
			}
			assignments = append(assignments, planner(docType, year)...)
		}
	}
	return domain.NewDownloadPlan(assignments), nil
}
