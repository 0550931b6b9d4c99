package content

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjstoneservices/site-api/pkg/logging"
)

type fakeStore struct {
	key   string
	page  string
	typ   BlockType
	value BlockValue
	err   error
}

func (f *fakeStore) Upsert(_ context.Context, key, page string, blockType BlockType, value BlockValue) (*Block, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.key, f.page, f.typ, f.value = key, page, blockType, value
	return &Block{ID: "block-1", Key: key, Page: page, BlockType: blockType, Value: value}, nil
}

func TestServiceUpdate_SanitizesRichText(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, nil, logging.Discard())

	block, err := svc.Update(context.Background(), UpdateBlockRequest{
		Key:       "home.hero.body",
		BlockType: BlockRichText,
		Value: BlockValue{
			HTML: `<p onclick="steal()">Hand-laid <b>stone</b></p><script>alert(1)</script>`,
			Text: "<b>kept as typed</b>",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "home", block.Page)
	assert.NotContains(t, store.value.HTML, "<script>")
	assert.NotContains(t, store.value.HTML, "onclick")
	assert.Contains(t, store.value.HTML, "<b>stone</b>")
	assert.Equal(t, "<b>kept as typed</b>", store.value.Text)
}

func TestServiceUpdate_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  UpdateBlockRequest
	}{
		{"missing key", UpdateBlockRequest{BlockType: BlockText}},
		{"long key", UpdateBlockRequest{Key: strings.Repeat("k", 121), BlockType: BlockText}},
		{"unknown type", UpdateBlockRequest{Key: "home.title", BlockType: "video"}},
		{"long text", UpdateBlockRequest{Key: "home.title", BlockType: BlockText, Value: BlockValue{Text: strings.Repeat("t", 5001)}}},
		{"bad url", UpdateBlockRequest{Key: "home.image", BlockType: BlockImage, Value: BlockValue{URL: "not a url"}}},
		{"bad gallery url", UpdateBlockRequest{Key: "home.gallery", BlockType: BlockGallery, Value: BlockValue{Items: []GalleryItem{{URL: "nope"}}}}},
		{"too many list items", UpdateBlockRequest{Key: "home.list", BlockType: BlockList, Value: BlockValue{ListItems: make([]string, 51)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			_, err := NewService(store, nil, logging.Discard()).Update(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidBlock)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.NotEmpty(t, verr.Fields)
			assert.Empty(t, store.key)
		})
	}
}

func TestServiceUpdate_StoreError(t *testing.T) {
	svc := NewService(&fakeStore{err: errors.New("connection refused")}, nil, logging.Discard())
	_, err := svc.Update(context.Background(), UpdateBlockRequest{Key: "footer", BlockType: BlockText, Value: BlockValue{Text: "hi"}})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidBlock)
}

func TestPageForKey(t *testing.T) {
	assert.Equal(t, "home", PageForKey("home.hero.title"))
	assert.Equal(t, "footer", PageForKey("footer"))
	assert.Equal(t, "global", PageForKey(".orphan"))
}
