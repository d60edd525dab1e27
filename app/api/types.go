package api

import (
	"github.com/pierrevano/whatson-api/app/catalog"
	"github.com/pierrevano/whatson-api/app/database"
	"github.com/pierrevano/whatson-api/app/sources"
)

type Handler struct {
	titleRepo   database.TitleRepository
	configCache *sources.ConfigCache
}

// ErrorResponse mirrors the HTTP status in its code field.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type SearchResponse struct {
	Page         int             `json:"page"`
	Results      []catalog.Title `json:"results"`
	TotalPages   int64           `json:"total_pages"`
	TotalResults int64           `json:"total_results"`
}
