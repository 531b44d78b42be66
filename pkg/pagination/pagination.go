package pagination

// Policy bounds the page size a caller may request.
type Policy struct {
	DefaultLimit int
	MaxLimit     int
}

// DefaultPolicy returns the default page size policy: 10 per page, at most 50.
func DefaultPolicy() Policy {
	return Policy{DefaultLimit: 10, MaxLimit: 50}
}

// Params holds limit/offset pagination parameters.
type Params struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Normalize applies the policy: a non-positive limit becomes the default,
// a limit above the maximum is clamped, and a negative offset becomes zero.
func (p Policy) Normalize(limit, offset int) Params {
	if limit <= 0 {
		limit = p.DefaultLimit
	}
	if p.MaxLimit > 0 && limit > p.MaxLimit {
		limit = p.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Params{Limit: limit, Offset: offset}
}
