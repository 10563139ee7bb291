package models

// Envelope is the response contract shared by every backend endpoint.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ListQuery carries the optional server side listing parameters.
type ListQuery struct {
	Status    string
	Category  string
	Search    string
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}
