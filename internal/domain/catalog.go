package domain

import (
	"slices"
	"strconv"
)

// DefaultFallbackImage is applied when a chosen background fails to load.
const DefaultFallbackImage ImageRef = "https://images.unsplash.com/photo-1507525428034-b723cf961d3e?w=1600&h=900&q=80&fit=crop"

// Catalog is the fixed, ordered, non-empty set of quotes and background images
// established at startup. It is never mutated after construction, so a single
// Catalog can be shared by every session.
type Catalog struct {
	quotes   []Quote
	images   []ImageRef
	fallback ImageRef
}

// NewCatalog builds a catalog from the given sequences.
// The slices are copied. Empty sequences, blank entries, and a missing
// fallback image are rejected with a validation error.
func NewCatalog(quotes []Quote, images []ImageRef, fallback ImageRef) (*Catalog, error) {
	if len(quotes) == 0 {
		return nil, NewValidationError("quotes", "catalog must contain at least one quote")
	}

	if len(images) == 0 {
		return nil, NewValidationError("images", "catalog must contain at least one image")
	}

	if fallback == "" {
		return nil, NewValidationError("fallback_image", "is required")
	}

	for i, q := range quotes {
		if q.Text == "" || q.Author == "" {
			return nil, NewValidationErrorWithValue("quotes", "text and author are required", i)
		}
	}

	for i, img := range images {
		if img == "" {
			return nil, NewValidationErrorWithValue("images", "image URL is required", i)
		}
	}

	return &Catalog{
		quotes:   slices.Clone(quotes),
		images:   slices.Clone(images),
		fallback: fallback,
	}, nil
}

// DefaultCatalog returns the built-in catalog shipped with the service.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultQuotes(), DefaultImages(), DefaultFallbackImage)
	if err != nil {
		panic("domain: built-in catalog is invalid: " + err.Error())
	}

	return c
}

// QuoteCount returns the number of quotes in the catalog.
func (c *Catalog) QuoteCount() int {
	return len(c.quotes)
}

// ImageCount returns the number of image references, duplicates included.
func (c *Catalog) ImageCount() int {
	return len(c.images)
}

// Quote returns the quote at index i.
func (c *Catalog) Quote(i int) (Quote, error) {
	if i < 0 || i >= len(c.quotes) {
		return Quote{}, NewNotFoundError("quote", strconv.Itoa(i))
	}

	return c.quotes[i], nil
}

// Image returns the image reference at index i.
func (c *Catalog) Image(i int) (ImageRef, error) {
	if i < 0 || i >= len(c.images) {
		return "", NewNotFoundError("image", strconv.Itoa(i))
	}

	return c.images[i], nil
}

// Quotes returns a copy of the quote sequence.
func (c *Catalog) Quotes() []Quote {
	return slices.Clone(c.quotes)
}

// Images returns a copy of the image sequence.
func (c *Catalog) Images() []ImageRef {
	return slices.Clone(c.images)
}

// Fallback returns the default background image.
func (c *Catalog) Fallback() ImageRef {
	return c.fallback
}

// Contains reports whether q is a member of the quote catalog.
func (c *Catalog) Contains(q Quote) bool {
	return slices.Contains(c.quotes, q)
}

// DefaultQuotes returns the built-in quote sequence.
func DefaultQuotes() []Quote {
	return []Quote{
		{Text: "The only way to do great work is to love what you do.", Author: "Steve Jobs"},
		{Text: "Innovation distinguishes between a leader and a follower.", Author: "Steve Jobs"},
		{Text: "Life is what happens when you're busy making other plans.", Author: "John Lennon"},
		{Text: "The future belongs to those who believe in the beauty of their dreams.", Author: "Eleanor Roosevelt"},
		{Text: "It is during our darkest moments that we must focus to see the light.", Author: "Aristotle"},
		{Text: "The only impossible journey is the one you never begin.", Author: "Tony Robbins"},
		{Text: "In the middle of difficulty lies opportunity.", Author: "Albert Einstein"},
		{Text: "Success is not final, failure is not fatal: it is the courage to continue that counts.", Author: "Winston Churchill"},
		{Text: "Believe you can and you're halfway there.", Author: "Theodore Roosevelt"},
		{Text: "The best time to plant a tree was 20 years ago. The second best time is now.", Author: "Chinese Proverb"},
		{Text: "Your time is limited, don't waste it living someone else's life.", Author: "Steve Jobs"},
		{Text: "The purpose of our lives is to be happy.", Author: "Dalai Lama"},
		{Text: "Get busy living or get busy dying.", Author: "Stephen King"},
		{Text: "You have within you right now, everything you need to deal with whatever the world can throw at you.", Author: "Brian Tracy"},
		{Text: "Believe in yourself. You are braver than you think, more talented than you know, and capable of more than you imagine.", Author: "Roy T. Bennett"},
		{Text: "I learned that courage was not the absence of fear, but the triumph over it.", Author: "Nelson Mandela"},
		{Text: "The only limit to our realization of tomorrow is our doubts of today.", Author: "Franklin D. Roosevelt"},
		{Text: "It does not matter how slowly you go as long as you do not stop.", Author: "Confucius"},
		{Text: "Everything you want is on the other side of fear.", Author: "Jack Canfield"},
		{Text: "Believe in the process and trust the timing.", Author: "Unknown"},
	}
}

// DefaultImages returns the built-in background sequence.
// Some scenes appear more than once; repeats weight the random pick.
func DefaultImages() []ImageRef {
	const base = "https://images.unsplash.com/"
	const size = "?w=1600&h=900&q=80&fit=crop"

	return []ImageRef{
		base + "photo-1507525428034-b723cf961d3e" + size, // beach
		base + "photo-1506905925346-21bda4d32df4" + size, // mountains
		base + "photo-1441974231531-c6227db76b6e" + size, // forest
		base + "photo-1495616811223-4d98c6e9c869" + size, // ocean wave
		base + "photo-1469022563149-aa64dbd37dae" + size, // sunset
		base + "photo-1502933691298-84fc14542831" + size, // sky
		base + "photo-1506905925346-21bda4d32df4" + size,
		base + "photo-1519904981063-b0cf448d479e" + size, // desert
		base + "photo-1505142468610-359e7d316be0" + size, // waves
		base + "photo-1506905925346-21bda4d32df4" + size,
		base + "photo-1475274047050-1d0c0975c63e" + size, // mountain lake
		base + "photo-1426604966848-d7bcdd5735a9" + size, // peaks
	}
}
