package domain

import (
	"encoding/json"
	"time"
)

// SessionStatus enumerates the lifecycle states of an uploaded photo.
type SessionStatus string

const (
	SessionStatusUploaded   SessionStatus = "uploaded"
	SessionStatusRated      SessionStatus = "rated"
	SessionStatusGenerating SessionStatus = "generating"
	SessionStatusDone       SessionStatus = "done"
	SessionStatusError      SessionStatus = "error"
)

// Session is the aggregate root tying one uploaded photo to its rating and
// edit history.
type Session struct {
	ID                string
	Status            SessionStatus
	OriginalImagePath string
	OriginalImageURL  string
	OriginalRemoteRef string
	RatingJSON        json.RawMessage
	SuggestionsJSON   json.RawMessage
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasRemoteRef reports whether the provider already holds a copy of the original.
func (s Session) HasRemoteRef() bool {
	return s.OriginalRemoteRef != ""
}

// Rating decodes the stored rating, returning nil when the session is unrated.
func (s Session) Rating() (*Rating, error) {
	if len(s.RatingJSON) == 0 || string(s.RatingJSON) == "null" {
		return nil, nil
	}
	var r Rating
	if err := json.Unmarshal(s.RatingJSON, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Suggestions decodes the stored suggestion list; unrated sessions yield none.
func (s Session) Suggestions() ([]Suggestion, error) {
	if len(s.SuggestionsJSON) == 0 || string(s.SuggestionsJSON) == "null" {
		return nil, nil
	}
	var out []Suggestion
	if err := json.Unmarshal(s.SuggestionsJSON, &out); err != nil {
		return nil, err
	}
	return out, nil
}
