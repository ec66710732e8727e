package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWikiClient(t *testing.T, handler http.HandlerFunc) *wikiClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &wikiClient{
		http:      &http.Client{Timeout: 5 * time.Second},
		wikipedia: server.URL,
		wikidata:  server.URL,
		lang:      "fr",
	}
}

func TestWikiClientSearch(t *testing.T) {
	var gotParams url.Values

	client := newTestWikiClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotParams = r.URL.Query()

		w.Write([]byte(`{"query":{"search":[
			{"title":"Marie Curie","pageid":10419},
			{"title":"Pierre Curie","pageid":10420}
		]}}`))
	})

	candidate, err := client.Search(context.Background(), "marie curie")

	require.NoError(t, err)
	require.NotNil(t, candidate)
	assert.Equal(t, "Marie Curie", candidate.Title)
	assert.Equal(t, 10419, candidate.PageID)

	assert.Equal(t, "query", gotParams.Get("action"))
	assert.Equal(t, "search", gotParams.Get("list"))
	assert.Equal(t, "marie curie", gotParams.Get("srsearch"))
	assert.Equal(t, "json", gotParams.Get("format"))
}

func TestWikiClientSearchNoResults(t *testing.T) {
	client := newTestWikiClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query":{"search":[]}}`))
	})

	candidate, err := client.Search(context.Background(), "zzzzzz")

	require.NoError(t, err)
	assert.Nil(t, candidate)
}

func TestWikiClientSearchSetsUserAgent(t *testing.T) {
	var gotAgent string

	client := newTestWikiClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte(`{"query":{"search":[]}}`))
	})

	_, err := client.Search(context.Background(), "anything")

	require.NoError(t, err)
	assert.Equal(t, wikiUserAgent, gotAgent)
}

func TestWikiClientSearchUpstreamError(t *testing.T) {
	client := newTestWikiClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Search(context.Background(), "marie curie")

	assert.Error(t, err)
}

func TestWikiClientEntityKey(t *testing.T) {
	var gotParams url.Values

	client := newTestWikiClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotParams = r.URL.Query()

		w.Write([]byte(`{"query":{"pages":{"10419":{"pageprops":{"wikibase_item":"Q7186"}}}}}`))
	})

	entity, err := client.EntityKey(context.Background(), 10419)

	require.NoError(t, err)
	assert.Equal(t, "Q7186", entity)

	assert.Equal(t, "pageprops", gotParams.Get("prop"))
	assert.Equal(t, "wikibase_item", gotParams.Get("ppprop"))
	assert.Equal(t, "10419", gotParams.Get("pageids"))
}

func TestWikiClientEntityKeyMissing(t *testing.T) {
	client := newTestWikiClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query":{"pages":{"10419":{}}}}`))
	})

	entity, err := client.EntityKey(context.Background(), 10419)

	require.NoError(t, err)
	assert.Empty(t, entity)
}

func TestWikiClientClaims(t *testing.T) {
	var gotParams url.Values

	client := newTestWikiClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotParams = r.URL.Query()

		w.Write([]byte(`{"claims":{"P21":[
			{"mainsnak":{"datavalue":{"value":{"id":"Q6581072"}}}}
		]}}`))
	})

	values, err := client.Claims(context.Background(), "Q7186", propertyGender)

	require.NoError(t, err)
	assert.Equal(t, []string{"Q6581072"}, values)

	assert.Equal(t, "wbgetclaims", gotParams.Get("action"))
	assert.Equal(t, "Q7186", gotParams.Get("entity"))
	assert.Equal(t, "P21", gotParams.Get("property"))
}

func TestWikiClientClaimsAbsent(t *testing.T) {
	client := newTestWikiClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"claims":{}}`))
	})

	values, err := client.Claims(context.Background(), "Q7186", propertyGender)

	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestWikiClientOccupationLabels(t *testing.T) {
	client := newTestWikiClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"entities":{"Q169470":{
			"labels":{"fr":{"value":"physicien"}},
			"claims":{"P2521":[
				{"mainsnak":{"datavalue":{"value":{"text":"Physikerin","language":"de"}}}},
				{"mainsnak":{"datavalue":{"value":{"text":"physicienne","language":"fr"}}}}
			]}
		}}}`))
	})

	labels, err := client.OccupationLabels(context.Background(), "Q169470")

	require.NoError(t, err)
	assert.Equal(t, "physicien", labels.Label)
	assert.Equal(t, "physicienne", labels.FeminineForm)
}

func TestWikiClientOccupationLabelsNoFeminineForm(t *testing.T) {
	client := newTestWikiClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"entities":{"Q82955":{
			"labels":{"fr":{"value":"scientifique"}},
			"claims":{}
		}}}`))
	})

	labels, err := client.OccupationLabels(context.Background(), "Q82955")

	require.NoError(t, err)
	assert.Equal(t, "scientifique", labels.Label)
	assert.Empty(t, labels.FeminineForm)
}

func TestWikiClientArticleURL(t *testing.T) {
	client := &wikiClient{wikipedia: "https://fr.wikipedia.org"}

	assert.Equal(t,
		"https://fr.wikipedia.org/wiki/Marie_Curie",
		client.ArticleURL("Marie Curie"))
	assert.Equal(t,
		"https://fr.wikipedia.org/wiki/Madonna_%28chanteuse%29",
		client.ArticleURL("Madonna (chanteuse)"))
}
