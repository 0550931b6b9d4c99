// Package content stores the editable text and image blocks shown on the
// public site.
package content

import (
	"strings"
	"time"
)

// BlockType is the shape of a block's value.
type BlockType string

const (
	BlockText     BlockType = "text"
	BlockRichText BlockType = "richtext"
	BlockImage    BlockType = "image"
	BlockGallery  BlockType = "gallery"
	BlockList     BlockType = "list"
)

// GalleryItem is one image in a gallery block.
type GalleryItem struct {
	URL     string `json:"url" validate:"required,url"`
	Caption string `json:"caption,omitempty" validate:"max=500"`
	Alt     string `json:"alt,omitempty" validate:"max=200"`
}

// BlockValue holds whichever fields the block type uses.
type BlockValue struct {
	Text      string        `json:"text,omitempty" validate:"max=5000"`
	HTML      string        `json:"html,omitempty" validate:"max=10000"`
	URL       string        `json:"url,omitempty" validate:"omitempty,url,max=500"`
	Alt       string        `json:"alt,omitempty" validate:"max=200"`
	Items     []GalleryItem `json:"items,omitempty" validate:"max=50,dive"`
	ListItems []string      `json:"listItems,omitempty" validate:"max=50,dive,max=500"`
}

// UpdateBlockRequest is the staff edit payload.
type UpdateBlockRequest struct {
	Key       string     `json:"key" validate:"required,max=120"`
	BlockType BlockType  `json:"block_type" validate:"required,oneof=text richtext image gallery list"`
	Value     BlockValue `json:"value"`
}

// Block is a stored content block.
type Block struct {
	ID        string     `json:"id"`
	Key       string     `json:"key"`
	Page      string     `json:"page"`
	BlockType BlockType  `json:"block_type"`
	Value     BlockValue `json:"value"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PageForKey returns the key segment before the first dot, or "global".
func PageForKey(key string) string {
	page, _, _ := strings.Cut(key, ".")
	if page == "" {
		return "global"
	}
	return page
}
