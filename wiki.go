package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const wikiUserAgent = "femmebox/" + releaseVersion + " (https://github.com/Seednode/femmebox)"

// wikiClient resolves guesses against the MediaWiki action APIs:
// full-text search and pageprops on Wikipedia, claims and labels on
// Wikidata. It implements Lookup.
type wikiClient struct {
	http      *http.Client
	wikipedia string
	wikidata  string
	lang      string
}

func newWikiClient(cfg *Config) *wikiClient {
	return &wikiClient{
		http: &http.Client{
			Timeout: cfg.lookupTimeout,
		},
		wikipedia: cfg.wikipediaBase(),
		wikidata:  cfg.wikidataBase(),
		lang:      cfg.lang,
	}
}

func (c *wikiClient) get(ctx context.Context, base string, params url.Values, out any) error {
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/w/api.php?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", wikiUserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, base)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", base, err)
	}

	return nil
}

// Search returns the top full-text search result for query, or nil when
// nothing matches.
func (c *wikiClient) Search(ctx context.Context, query string) (*Candidate, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)

	var data struct {
		Query struct {
			Search []struct {
				Title  string `json:"title"`
				PageID int    `json:"pageid"`
			} `json:"search"`
		} `json:"query"`
	}

	if err := c.get(ctx, c.wikipedia, params, &data); err != nil {
		return nil, fmt.Errorf("wikipedia search: %w", err)
	}

	if len(data.Query.Search) == 0 {
		return nil, nil
	}

	top := data.Query.Search[0]

	return &Candidate{
		Title:  top.Title,
		PageID: top.PageID,
	}, nil
}

// EntityKey maps a Wikipedia page ID to its Wikidata entity key, or ""
// when the page has no linked item.
func (c *wikiClient) EntityKey(ctx context.Context, pageID int) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "pageprops")
	params.Set("ppprop", "wikibase_item")
	params.Set("pageids", strconv.Itoa(pageID))

	var data struct {
		Query struct {
			Pages map[string]struct {
				PageProps struct {
					WikibaseItem string `json:"wikibase_item"`
				} `json:"pageprops"`
			} `json:"pages"`
		} `json:"query"`
	}

	if err := c.get(ctx, c.wikipedia, params, &data); err != nil {
		return "", fmt.Errorf("wikipedia pageprops: %w", err)
	}

	page, ok := data.Query.Pages[strconv.Itoa(pageID)]
	if !ok {
		return "", nil
	}

	return page.PageProps.WikibaseItem, nil
}

// Claims fetches all entity-ID values of a property for an entity.
func (c *wikiClient) Claims(ctx context.Context, entity, property string) ([]string, error) {
	params := url.Values{}
	params.Set("action", "wbgetclaims")
	params.Set("entity", entity)
	params.Set("property", property)

	var data struct {
		Claims map[string][]struct {
			MainSnak struct {
				DataValue struct {
					Value struct {
						ID string `json:"id"`
					} `json:"value"`
				} `json:"datavalue"`
			} `json:"mainsnak"`
		} `json:"claims"`
	}

	if err := c.get(ctx, c.wikidata, params, &data); err != nil {
		return nil, fmt.Errorf("wikidata claims: %w", err)
	}

	var values []string
	for _, claim := range data.Claims[property] {
		if id := claim.MainSnak.DataValue.Value.ID; id != "" {
			values = append(values, id)
		}
	}

	return values, nil
}

// OccupationLabels resolves an occupation entity's generic label and,
// when one exists in the configured language, its feminine form.
func (c *wikiClient) OccupationLabels(ctx context.Context, occupation string) (OccupationLabels, error) {
	params := url.Values{}
	params.Set("action", "wbgetentities")
	params.Set("ids", occupation)
	params.Set("props", "labels|claims")
	params.Set("languages", c.lang)

	var data struct {
		Entities map[string]struct {
			Labels map[string]struct {
				Value string `json:"value"`
			} `json:"labels"`
			Claims map[string][]struct {
				MainSnak struct {
					DataValue struct {
						Value struct {
							Text     string `json:"text"`
							Language string `json:"language"`
						} `json:"value"`
					} `json:"datavalue"`
				} `json:"mainsnak"`
			} `json:"claims"`
		} `json:"entities"`
	}

	if err := c.get(ctx, c.wikidata, params, &data); err != nil {
		return OccupationLabels{}, fmt.Errorf("wikidata entity %s: %w", occupation, err)
	}

	var labels OccupationLabels

	entity, ok := data.Entities[occupation]
	if !ok {
		return labels, nil
	}

	labels.Label = entity.Labels[c.lang].Value

	// The feminine form is monolingual text; pick the one matching the
	// configured language.
	for _, claim := range entity.Claims[propertyFeminineForm] {
		value := claim.MainSnak.DataValue.Value
		if value.Language == c.lang && value.Text != "" {
			labels.FeminineForm = value.Text
			break
		}
	}

	return labels, nil
}

// ArticleURL builds the canonical article link for an accepted entry.
func (c *wikiClient) ArticleURL(title string) string {
	return c.wikipedia + "/wiki/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
}

// warm is a startup probe: it logs whether the wiki endpoints are
// reachable without failing server start.
func (c *wikiClient) warm(ctx context.Context, cfg *Config) {
	start := time.Now()

	_, err := c.Search(ctx, "Wikipédia")
	if err != nil {
		logf(cfg, "WIKI: Endpoint probe failed after %s: %v", time.Since(start).Round(time.Millisecond), err)

		return
	}

	logf(cfg, "WIKI: Endpoints reachable in %s", time.Since(start).Round(time.Millisecond))
}
