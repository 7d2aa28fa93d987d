package dto

import (
	"github.com/jsamuelsen/quote-presenter/internal/domain"
	"github.com/jsamuelsen/quote-presenter/internal/ports"
)

// QuoteResponse is one catalog quote.
type QuoteResponse struct {
	Index  int    `json:"index"`
	Text   string `json:"text"`
	Author string `json:"author"`

	// Display and Byline are the strings the page renders.
	Display string `json:"display"`
	Byline  string `json:"byline"`
}

// NewQuoteResponse converts a catalog quote.
func NewQuoteResponse(i int, q domain.Quote) QuoteResponse {
	return QuoteResponse{
		Index:   i,
		Text:    q.Text,
		Author:  q.Author,
		Display: q.DisplayText(),
		Byline:  q.DisplayAuthor(),
	}
}

// ImageResponse is one catalog image.
type ImageResponse struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
}

// NewImageResponse converts a catalog image.
func NewImageResponse(i int, img domain.ImageRef) ImageResponse {
	return ImageResponse{Index: i, URL: img.String()}
}

// QuoteIndexRequest is the path of GET /quotes/:index.
type QuoteIndexRequest struct {
	Index int `uri:"index" validate:"gte=0"`
}

// WaitRequest selects whether an action waits for its asynchronous step.
type WaitRequest struct {
	Wait bool `form:"wait"`
}

// ViewResponse is the session's current view.
type ViewResponse struct {
	SessionID string          `json:"sessionId"`
	View      ports.ViewState `json:"view"`
}

// NextQuoteResponse reports a NextQuote or a background wait. Background is
// set when the caller waited for the image step: "loaded", "fallback",
// "superseded" or "pending".
type NextQuoteResponse struct {
	ViewResponse
	Background string `json:"background,omitempty"`
}

// LikeResponse reports a Like.
type LikeResponse struct {
	ViewResponse
	Accepted bool `json:"accepted"`
	Likes    int  `json:"likes"`
}

// CopyResponse reports a CopyCurrent. Copied is only meaningful when
// Pending is false.
type CopyResponse struct {
	ViewResponse
	Started bool   `json:"started"`
	Pending bool   `json:"pending"`
	Copied  bool   `json:"copied"`
	Text    string `json:"text,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ClipboardResponse is the session clipboard content.
type ClipboardResponse struct {
	Text    string   `json:"text"`
	History []string `json:"history,omitempty"`
}
