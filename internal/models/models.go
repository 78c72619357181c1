package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// UnknownChapterNumber sorts last when chapters are ordered by number.
	UnknownChapterNumber float64 = -1
	// UnknownUploadTime marks a chapter whose date could not be read.
	UnknownUploadTime int64 = 0
)

type Status int

const (
	StatusUnknown Status = iota
	StatusOngoing
	StatusCompleted
	StatusHiatus
	StatusCancelled
	StatusPublishingFinished
)

var statusNames = map[Status]string{
	StatusUnknown:            "unknown",
	StatusOngoing:            "ongoing",
	StatusCompleted:          "completed",
	StatusHiatus:             "hiatus",
	StatusCancelled:          "cancelled",
	StatusPublishingFinished: "publishing_finished",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return statusNames[StatusUnknown]
}

func ParseStatus(raw string) Status {
	needle := strings.ToLower(strings.TrimSpace(raw))
	for status, name := range statusNames {
		if name == needle {
			return status
		}
	}
	return StatusUnknown
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}
	*s = ParseStatus(raw)
	return nil
}

// Series is a catalog entry. ID is opaque to the host and must resolve back to
// the same details page when handed to the connector again.
type Series struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	ThumbnailURL string   `json:"thumbnailUrl,omitempty"`
	Authors      []string `json:"authors,omitempty"`
	Artists      []string `json:"artists,omitempty"`
	Genres       []string `json:"genres,omitempty"`
	Synopsis     string   `json:"synopsis,omitempty"`
	Status       Status   `json:"status"`
	Initialized  bool     `json:"initialized"`
}

type Chapter struct {
	SeriesID   string  `json:"seriesId"`
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Number     float64 `json:"number"`
	UploadedAt int64   `json:"uploadedAt"`
	Scanlator  string  `json:"scanlator,omitempty"`
}

// Page is one reader image. When ImageURL is empty, URL is a token that has
// to go through ResolveImage first.
type Page struct {
	Index    int    `json:"index"`
	URL      string `json:"url,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type SeriesPage struct {
	Items       []Series `json:"items"`
	HasNextPage bool     `json:"hasNextPage"`
}
