package marketapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jwerderits/farmspread/internal/domain"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.RequestURI()]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestList_BareArray(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/api/v1/market/": `[{"resource_uri": "/api/v1/market/1/"}, {"resource_uri": "/api/v1/market/2/"}]`,
	})
	c := NewClient(srv.URL, nil, time.Second)

	markets, err := c.ListMarkets(context.Background(), "/api/v1/market/")
	require.NoError(t, err)
	require.Equal(t, []domain.ResourceRef{{ResourceURI: "/api/v1/market/1/"}, {ResourceURI: "/api/v1/market/2/"}}, markets)
}

func TestList_FollowsNext(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/api/v1/market/":          `{"meta": {"next": "/api/v1/market/?offset=1"}, "objects": [{"resource_uri": "/m/1/"}]}`,
		"/api/v1/market/?offset=1": `{"meta": {"next": "?offset=2"}, "objects": [{"resource_uri": "/m/2/"}]}`,
		"/api/v1/market/?offset=2": `{"meta": {"next": null}, "objects": [{"resource_uri": "/m/3/"}]}`,
	})
	c := NewClient(srv.URL+"/", nil, time.Second)

	markets, err := c.ListMarkets(context.Background(), "/api/v1/market/")
	require.NoError(t, err)
	require.Equal(t, []domain.ResourceRef{{ResourceURI: "/m/1/"}, {ResourceURI: "/m/2/"}, {ResourceURI: "/m/3/"}}, markets)
}

func TestList_LoopingNext(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/loop/": `{"meta": {"next": "/loop/"}, "objects": []}`,
	})
	c := NewClient(srv.URL, nil, time.Second)

	_, err := c.ListMarkets(context.Background(), "/loop/")
	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
}

func TestGetJSON_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/broken/":
			fmt.Fprint(w, `{"stalls": [`)
		case "/fail/":
			http.Error(w, "upstream down", http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := NewClient(srv.URL, nil, time.Second)

	_, err := c.GetEvent(context.Background(), "/fail/")
	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, http.StatusBadGateway, te.StatusCode)
	require.Equal(t, "/fail/", te.URL)

	_, err = c.GetEvent(context.Background(), "/broken/")
	require.ErrorAs(t, err, &te)
	require.Zero(t, te.StatusCode)

	_, err = c.GetSeason(context.Background(), "/missing/")
	require.ErrorAs(t, err, &te)
	require.Equal(t, http.StatusNotFound, te.StatusCode)
}

func TestGetJSON_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, nil, time.Second)
	_, err := c.GetMarket(context.Background(), "/api/v1/market/1/")
	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	require.Zero(t, te.StatusCode)
}

func TestClient_SendsHeaders(t *testing.T) {
	var gotAuth, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		fmt.Fprint(w, `{"seasons": [{"resource_uri": "/api/v1/season/3/"}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, map[string]string{"Authorization": "ApiKey market:secret"}, time.Second)
	market, err := c.GetMarket(context.Background(), "/api/v1/market/1/")
	require.NoError(t, err)
	require.Equal(t, []domain.ResourceRef{{ResourceURI: "/api/v1/season/3/"}}, market.Seasons)
	require.Equal(t, "ApiKey market:secret", gotAuth)
	require.Equal(t, "application/json", gotAccept)
}

func TestGetEvent_Decodes(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/api/v1/event/9/": `{"market": "Wooster Square", "start_datetime": "2020-06-07T09:00:00", "stalls": [{"vendor": {"id": 42, "name": "Sunny Acres"}}]}`,
	})
	c := NewClient(srv.URL, nil, 0)

	ev, err := c.GetEvent(context.Background(), "/api/v1/event/9/")
	require.NoError(t, err)
	require.Equal(t, "Wooster Square", ev.Market)
	require.Len(t, ev.Stalls, 1)
	require.Equal(t, domain.FlexString("42"), ev.Stalls[0].Vendor.ID)
}

func TestResolveNext(t *testing.T) {
	require.Equal(t, "/a/?offset=2", resolveNext("/a/?offset=1", "?offset=2"))
	require.Equal(t, "/b/", resolveNext("/a/", "/b/"))
	require.Equal(t, "", resolveNext("/a/", ""))
}
