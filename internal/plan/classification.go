package plan

import "docket/internal/extract"

// Classification is the tagged per-file outcome of the extraction stage and
// the builder's input. Exactly one of Result or Err is meaningful; use
// Classified and ClassificationFailed to construct.
type Classification struct {
	FileID string
	Path   string
	Result extract.Result
	Err    error
}

// Classified builds a successful classification.
func Classified(fileID, path string, result extract.Result) Classification {
	return Classification{FileID: fileID, Path: path, Result: result}
}

// ClassificationFailed builds a failed classification. The file stays in the
// plan as a blocked item so the failure is visible in the report.
func ClassificationFailed(fileID, path string, err error) Classification {
	return Classification{FileID: fileID, Path: path, Err: err}
}

// Failed reports whether extraction failed for this file.
func (c Classification) Failed() bool {
	return c.Err != nil
}
