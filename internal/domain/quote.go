// Package domain contains core business entities and rules.
package domain

// Quote is an immutable quotation with its author.
// This is a domain entity - it has no knowledge of rendering or transport.
type Quote struct {
	// Text is the quotation itself, without surrounding quote marks.
	Text string

	// Author is who said or wrote the quote.
	Author string
}

// DisplayText returns the quote text as shown on the page, wrapped in double quotes.
func (q Quote) DisplayText() string {
	return `"` + q.Text + `"`
}

// DisplayAuthor returns the author line as shown on the page.
func (q Quote) DisplayAuthor() string {
	return "- " + q.Author
}

// ClipboardText returns the string written to the clipboard: "<text>" - <author>.
func (q Quote) ClipboardText() string {
	return q.DisplayText() + " - " + q.Author
}

// ImageRef is an opaque background image URL.
type ImageRef string

// String implements fmt.Stringer.
func (r ImageRef) String() string {
	return string(r)
}
