package paging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRequest struct {
	Symbol string
	Token  string
}

func (r testRequest) WithPageToken(token string) testRequest {
	r.Token = token
	return r
}

// pager serves pages keyed by the request token.
type pager struct {
	pages  map[string]Page[int]
	fail   map[string]error
	tokens []string
}

func (p *pager) fetch(ctx context.Context, req testRequest) (Page[int], error) {
	p.tokens = append(p.tokens, req.Token)
	if err := p.fail[req.Token]; err != nil {
		return Page[int]{}, err
	}
	return p.pages[req.Token], nil
}

func threePages() *pager {
	return &pager{pages: map[string]Page[int]{
		"":    {Items: []int{1, 2}, NextPageToken: "abc"},
		"abc": {Items: []int{3}, NextPageToken: "def"},
		"def": {Items: []int{4, 5}, NextPageToken: ""},
	}}
}

func TestPages_FollowsTokens(t *testing.T) {
	p := threePages()

	var pages []Page[int]
	for page, err := range Pages(context.Background(), testRequest{Symbol: "AAPL"}, p.fetch) {
		require.NoError(t, err)
		pages = append(pages, page)
	}

	assert.Len(t, pages, 3)
	assert.Equal(t, []string{"", "abc", "def"}, p.tokens)
	assert.Equal(t, "", pages[2].NextPageToken)
}

func TestPages_SinglePage(t *testing.T) {
	p := &pager{pages: map[string]Page[int]{"": {Items: []int{1}}}}

	n := 0
	for _, err := range Pages(context.Background(), testRequest{}, p.fetch) {
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 1, n)
}

func TestPages_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	p := threePages()
	p.fail = map[string]error{"abc": boom}

	var errs []error
	n := 0
	for _, err := range Pages(context.Background(), testRequest{}, p.fetch) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	assert.Equal(t, 1, n)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], boom)
	assert.Equal(t, []string{"", "abc"}, p.tokens)
}

func TestPages_ConsumerStops(t *testing.T) {
	p := threePages()
	for range Pages(context.Background(), testRequest{}, p.fetch) {
		break
	}
	assert.Equal(t, []string{""}, p.tokens)
}

func TestPages_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := threePages()
	for _, err := range Pages(ctx, testRequest{}, p.fetch) {
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Empty(t, p.tokens)
}

func TestItems(t *testing.T) {
	p := threePages()
	var got []int
	for item, err := range Items(context.Background(), testRequest{}, p.fetch) {
		require.NoError(t, err)
		got = append(got, item)
		if item == 3 {
			break
		}
	}
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, []string{"", "abc"}, p.tokens)
}

func TestCollect(t *testing.T) {
	items, err := Collect(context.Background(), testRequest{}, threePages().fetch)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, items)

	boom := errors.New("boom")
	p := threePages()
	p.fail = map[string]error{"def": boom}
	items, err = Collect(context.Background(), testRequest{}, p.fetch)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1, 2, 3}, items)
}
