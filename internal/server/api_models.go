package server

// SubmitScanRequest is the payload accepted by POST /scans.
type SubmitScanRequest struct {
	Target   string `json:"target" example:"http://localhost:9999/"`
	Depth    int    `json:"depth,omitempty" example:"2"`
	MaxPages int    `json:"max_pages,omitempty" example:"50"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"scan not found"`
}
