package dto

type ExpandKnowledgeRequest struct {
	RawText   string `json:"raw_text" validate:"required"`
	SourceTag string `json:"source_tag" validate:"required,max=200"`
	Domain    string `json:"domain,omitempty" validate:"omitempty,max=100"`
	// Target picks the knowledge file; curated material goes to core
	Target string `json:"target,omitempty" validate:"omitempty,oneof=core expanded"`
}

type ExpandKnowledgeResponse struct {
	Status       string `json:"status"`
	EntriesAdded int    `json:"entries_added"`
	Domain       string `json:"domain"`
	Target       string `json:"target"`
}
