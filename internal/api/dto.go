package api

import (
	"github.com/giuthas/patkit/internal/recordingservice"
)

// SetExcludedRequest is the request body for changing a recording's
// excluded flag.
type SetExcludedRequest struct {
	Excluded bool `json:"excluded"`
}

// RecordingDetail is the full recording response type (aliased from
// the domain layer).
type RecordingDetail = recordingservice.RecordingDetail

// RecordingListItem is a lightweight item in a list response (aliased
// from the domain layer).
type RecordingListItem = recordingservice.RecordingListItem

// RecordingListResponse wraps paginated recording listings.
type RecordingListResponse struct {
	Recordings []RecordingListItem `json:"recordings"`
	Total      int                 `json:"total"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path"`
	Prompt  string `json:"prompt"`
	Snippet string `json:"snippet"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// SessionListResponse wraps the session directory listing.
type SessionListResponse struct {
	Sessions []string `json:"sessions"`
}
