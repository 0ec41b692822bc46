package http

import (
	"github.com/google/uuid"

	"notice/internal/model"
)

// ErrorResponse is the uniform error body for every endpoint.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

type SubmitRequest struct {
	URL string `json:"url"`
}

// Submit outcome statuses.
const (
	SubmitStatusQueued        = "queued"
	SubmitStatusAlreadyQueued = "already_queued"
	SubmitStatusExists        = "exists"
)

type SubmitResponse struct {
	ID      *uuid.UUID `json:"id,omitempty"`
	URL     string     `json:"url"`
	Status  string     `json:"status"`
	Message string     `json:"message"`
}

type CrawlRequest struct {
	URL string `json:"url"`
}

type DocumentsResponse struct {
	Documents []model.DocumentListItem `json:"documents"`
	Total     int64                    `json:"total"`
	Limit     int64                    `json:"limit"`
	Offset    int64                    `json:"offset"`
}

type HistoryResponse struct {
	History []model.HistoryEntry `json:"history"`
}

type ResyncResponse struct {
	Synced       int64 `json:"synced"`
	Failed       int64 `json:"failed"`
	TotalInStore int64 `json:"total_in_store"`
	TotalInIndex int64 `json:"total_in_index"`
}
