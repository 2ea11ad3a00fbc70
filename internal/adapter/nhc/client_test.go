package nhc

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/cyclone-relay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// feedServer serves the testdata feeds and a fake cone image.
func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for _, basin := range []string{"at", "ep"} {
		data, err := os.ReadFile("testdata/index-" + basin + ".xml")
		require.NoError(t, err)
		mux.HandleFunc("GET /index-"+basin+".xml", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/rss+xml")
			_, _ = w.Write(data)
		})
	}
	mux.HandleFunc("GET /storm_graphics/AT13/AL132023_5day_cone_with_line_and_wind.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG-cone"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Cyclones(t *testing.T) {
	srv := feedServer(t)
	c := NewClient(srv.URL, []string{"at", "ep"}, 5*time.Second, discardLogger())

	records, err := c.Cyclones(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	lee := records[0]
	assert.Equal(t, "AL132023", lee.ATCFID)
	assert.Equal(t, "AT13", lee.SeasonalID)
	assert.Equal(t, "summary-al132023-202309101500", lee.UpdateToken)
	assert.Equal(t, "HURRICANE", lee.Classification)
	assert.Equal(t, "Lee", lee.Name)
	assert.Equal(t, "120 mph", lee.Wind)
	assert.Equal(t, 3, lee.Category)
	assert.Equal(t, "at", lee.Basin)
	assert.Equal(t, domain.Geo{Lat: 21.7, Lon: -61.9}, lee.Center)
	assert.Equal(t, "WNW at 7 mph", lee.Movement)
	assert.Equal(t, "952 mb", lee.Pressure)
	assert.Equal(t, "...LEE CONTINUES TO PRODUCE DANGEROUS SURF...", lee.Headline)
	require.NotNil(t, lee.AdvisoryPublishedAt)
	assert.True(t, time.Date(2023, 9, 10, 14, 52, 0, 0, time.UTC).Equal(*lee.AdvisoryPublishedAt))

	margot := records[1]
	assert.Equal(t, "AL142023", margot.ATCFID)
	assert.Equal(t, "AT14", margot.SeasonalID)
	assert.Equal(t, 0, margot.Category)
	assert.Nil(t, margot.AdvisoryPublishedAt)
}

func TestClient_Cyclones_EmptyBasin(t *testing.T) {
	srv := feedServer(t)
	c := NewClient(srv.URL, []string{"ep"}, 5*time.Second, discardLogger())

	records, err := c.Cyclones(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestClient_Cyclones_BasinFailureFailsPoll(t *testing.T) {
	srv := feedServer(t)
	c := NewClient(srv.URL, []string{"at", "cp"}, 5*time.Second, discardLogger())

	_, err := c.Cyclones(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch cp feed")
}

func TestClient_ConeImage(t *testing.T) {
	srv := feedServer(t)
	c := NewClient(srv.URL, []string{"at"}, 5*time.Second, discardLogger())
	rec := domain.CycloneRecord{ATCFID: "AL132023", SeasonalID: "AT13"}

	assert.Equal(t, srv.URL+"/storm_graphics/AT13/AL132023_5day_cone_with_line_and_wind.png", c.ConeImageURL(rec))

	data, err := c.ConeImage(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG-cone"), data)

	_, err = c.ConeImage(context.Background(), domain.CycloneRecord{ATCFID: "AL992023", SeasonalID: "AT99"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestParseFeed(t *testing.T) {
	f, err := os.Open("testdata/index-at.xml")
	require.NoError(t, err)
	defer f.Close()

	records, err := ParseFeed(f, "at")
	require.NoError(t, err)
	assert.Equal(t, []string{"AL132023", "AL142023"}, domain.IDs(records))
}
