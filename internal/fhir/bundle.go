package fhir

// Bundle is a FHIR Bundle (search results or $everything output).
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Type         string        `json:"type"`
	Total        int           `json:"total,omitempty"`
	Link         []BundleLink  `json:"link,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
}

// BundleLink is a paging link. Only the first page is ever read.
type BundleLink struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

// BundleEntry wraps one resource in a bundle.
type BundleEntry struct {
	FullURL  string       `json:"fullUrl,omitempty"`
	Resource Resource     `json:"resource,omitempty"`
	Search   *EntrySearch `json:"search,omitempty"`
}

// EntrySearch tells whether an entry matched the query or was pulled in by _include.
type EntrySearch struct {
	Mode string `json:"mode,omitempty"` // match, include, outcome
}

// Resources returns every non-empty entry resource in bundle order.
func (b *Bundle) Resources() []Resource {
	if b == nil {
		return nil
	}
	out := make([]Resource, 0, len(b.Entry))
	for _, entry := range b.Entry {
		if entry.Resource != nil {
			out = append(out, entry.Resource)
		}
	}
	return out
}

// ResourcesOfType returns the entries whose resourceType equals resourceType.
func (b *Bundle) ResourcesOfType(resourceType string) []Resource {
	var out []Resource
	for _, r := range b.Resources() {
		if r.Type() == resourceType {
			out = append(out, r)
		}
	}
	return out
}

// HasNextPage reports whether the store signalled more results than the first page.
func (b *Bundle) HasNextPage() bool {
	if b == nil {
		return false
	}
	for _, link := range b.Link {
		if link.Relation == "next" {
			return true
		}
	}
	return false
}
