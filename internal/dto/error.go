package dto

// ErrorResponse is the structured error payload returned by the API.
type ErrorResponse struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}
