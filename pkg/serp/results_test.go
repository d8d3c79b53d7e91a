package serp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) interface{} {
	t.Helper()
	var v interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestFindResultsListKnownKeys(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
	}{
		{"results", `{"results":[{"url":"https://a"},{"url":"https://b"}]}`, 2},
		{"organic_results", `{"organic_results":[{"link":"https://a"}]}`, 1},
		{"data", `{"meta":{},"data":[{"href":"https://a"},{"href":"https://b"},{"href":"https://c"}]}`, 3},
		{"top-level list", `[{"url":"https://a"}]`, 1},
		{"scalar", `"nothing"`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, FindResultsList(decode(t, tt.payload)), tt.want)
		})
	}
}

func TestFindResultsListWalksNestedPayload(t *testing.T) {
	payload := decode(t, `{
		"search": {
			"ads": [{"text": "buy now"}],
			"web": {"hits": [
				{"link": "https://go.dev", "title": "Go"},
				{"link": "https://pkg.go.dev", "title": "Packages"},
				{"link": "https://gobyexample.com"}
			]}
		}
	}`)

	list := FindResultsList(payload)
	require.Len(t, list, 3)
	assert.Equal(t, "https://go.dev", list[0].(map[string]interface{})["link"])
}

func TestFindResultsListPrefersMostURLs(t *testing.T) {
	payload := decode(t, `{
		"a_links": [
			{"url": "https://only-one"},
			{"label": "footer"},
			{"label": "privacy"}
		],
		"b_hits": [
			{"link": "https://first"},
			{"link": "https://second"}
		]
	}`)

	list := FindResultsList(payload)
	require.Len(t, list, 2)
	assert.Equal(t, "https://first", list[0].(map[string]interface{})["link"])
}

func TestFindResultsListTieIsStable(t *testing.T) {
	payload := decode(t, `{
		"zeta":  [{"url": "https://z1"}, {"url": "https://z2"}],
		"alpha": [{"url": "https://a1"}, {"url": "https://a2"}],
		"mid":   [{"url": "https://m1"}, {"url": "https://m2"}]
	}`)

	for i := 0; i < 20; i++ {
		list := FindResultsList(payload)
		require.Len(t, list, 2)
		assert.Equal(t, "https://a1", list[0].(map[string]interface{})["url"])
	}
}

func TestPickURL(t *testing.T) {
	assert.Equal(t, "https://b", PickURL(map[string]interface{}{"url": "/relative", "link": "https://b"}))
	assert.Equal(t, "http://c", PickURL(map[string]interface{}{"result_url": "http://c"}))
	assert.Equal(t, "", PickURL(map[string]interface{}{"url": 42}))
}

func TestNormalizeResult(t *testing.T) {
	r, ok := NormalizeResult(map[string]interface{}{
		"name":        "  Rob Pike  ",
		"link":        "https://example.com/rob",
		"description": "Go co-author",
	}, 3)
	require.True(t, ok)
	assert.Equal(t, 3, r.Rank)
	assert.Equal(t, "Rob Pike", r.Title)
	assert.Equal(t, "https://example.com/rob", r.URL)
	assert.Equal(t, "Go co-author", r.Snippet)

	_, ok = NormalizeResult(map[string]interface{}{"title": "no url"}, 1)
	assert.False(t, ok)
}

func TestNormalizerDeduplicatesAcrossPages(t *testing.T) {
	n := NewNormalizer()

	first := n.Add([]interface{}{
		map[string]interface{}{"url": "https://a"},
		map[string]interface{}{"url": "https://b"},
		"not an object",
		map[string]interface{}{"title": "missing url"},
	})
	second := n.Add([]interface{}{
		map[string]interface{}{"url": "https://b"},
		map[string]interface{}{"url": "https://c"},
	})

	all := append(first, second...)
	Rank(all)

	require.Len(t, all, 3)
	assert.Equal(t, "https://c", all[2].URL)
	assert.Equal(t, 3, all[2].Rank)
}
