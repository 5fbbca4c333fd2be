package storage

// Result - one persisted extraction run. OutputJSON carries the serialized
// statement list plus the artifact path, exactly as written by the pipeline.
type Result struct {
	ID         string
	DocID      string
	Exchange   string
	FilingType string
	FilingDate string
	SourceFile string
	OutputJSON string
	CreatedAt  string
}
