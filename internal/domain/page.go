package domain

// Default pagination window for list
const (
	DefaultSkip  = 0
	DefaultLimit = 100
)

// Page is an offset/limit window over the nodes in id order
type Page struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

// DefaultPage returns the window used when the caller supplies none
func DefaultPage() Page {
	return Page{Skip: DefaultSkip, Limit: DefaultLimit}
}

// Validate rejects negative offsets and sizes
func (p Page) Validate() error {
	if p.Skip < 0 {
		return NewValidationError("skip", "skip must be greater than or equal to 0")
	}
	if p.Limit < 0 {
		return NewValidationError("limit", "limit must be greater than or equal to 0")
	}
	return nil
}
