package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"romvault/pkg/logging"
	"romvault/pkg/utils"
)

func testFetcher() *Fetcher {
	return NewFetcher(2*time.Second, 0)
}

func fixedCategorizer() *Categorizer {
	return NewCategorizer(DefaultCategoryRules, []string{"Arcade"})
}

func TestArchiveSourceFetchAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/advancedsearch.php", r.URL.Path)
		q := r.URL.Query().Get("q")
		switch {
		case strings.Contains(q, "nes-roms"):
			fmt.Fprint(w, `{"response":{"numFound":2,"docs":[
				{"identifier":"smb-nes","title":"Super Mario Bros."},
				{"identifier":"zelda-nes","title":""}
			]}}`)
		case strings.Contains(q, "snes-roms"):
			fmt.Fprint(w, `{"response":{"numFound":1,"docs":[{"identifier":"","title":"skipped"}]}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := NewArchiveSource(srv.URL, map[string]string{"nes": "nes-roms", "snes": "snes-roms"}, 10, testFetcher(), fixedCategorizer())
	src.Logger = logging.Nop

	games, err := src.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, games, 2)

	assert.Equal(t, "Super Mario Bros.", games[0].Name)
	assert.Equal(t, srv.URL+"/download/smb-nes", games[0].URL)
	assert.Equal(t, srv.URL+"/services/img/smb-nes", games[0].Thumbnail)
	assert.Equal(t, "nes", games[0].System)
	assert.Equal(t, "Platformer", games[0].Category)
	assert.Equal(t, "archive", games[0].Source)

	// empty title falls back to the identifier
	assert.Equal(t, "zelda-nes", games[1].Name)
}

func TestArchiveSourcePartialPlatformFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get("q"), "gba-roms") {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"response":{"docs":[{"identifier":"tetris","title":"Tetris"}]}}`)
	}))
	defer srv.Close()

	src := NewArchiveSource(srv.URL, map[string]string{"gb": "gb-roms", "gba": "gba-roms"}, 10, testFetcher(), fixedCategorizer())
	src.Logger = logging.Nop

	games, err := src.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "gb", games[0].System)
}

func TestArchiveSourceTotalFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewArchiveSource(srv.URL, map[string]string{"gb": "gb-roms", "gba": "gba-roms"}, 10, testFetcher(), fixedCategorizer())
	src.Logger = logging.Nop

	games, err := src.FetchAll(context.Background())
	assert.Nil(t, games)
	assert.ErrorIs(t, err, ErrAllPlatformsFailed)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
}

const listingHTML = `<html><body><h1>Index of /gb/</h1>
<table>
<tr><td><a href="../">Parent directory/</a></td></tr>
<tr><td><a href="?C=N&amp;O=D">Name</a></td></tr>
<tr><td><a href="Tetris%20%28World%29%20%28Rev%201%29.zip">Tetris (World) (Rev 1).zip</a></td></tr>
<tr><td><a href="Pokemon%20-%20Red%20Version%20%28USA%2C%20Europe%29.zip">Pokemon - Red Version</a></td></tr>
<tr><td><a href="readme.txt">readme.txt</a></td></tr>
<tr><td><a href="BIOS/">BIOS/</a></td></tr>
</table></body></html>`

func TestIndexSourceFetchAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/roms/Nintendo - Game Boy/" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, listingHTML)
	}))
	defer srv.Close()

	src := NewIndexSource(srv.URL, map[string]string{"gb": "/roms/Nintendo - Game Boy/"}, testFetcher(), fixedCategorizer()).
		WithThumbnails("https://thumbs.test", map[string]string{"gb": "Nintendo - Game Boy"})
	src.Logger = logging.Nop

	games, err := src.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, games, 2)

	assert.Equal(t, "Tetris", games[0].Name)
	assert.Equal(t, "Puzzle", games[0].Category)
	assert.Equal(t, "gb", games[0].System)
	assert.Equal(t, "index", games[0].Source)
	assert.Equal(t, srv.URL+"/roms/Nintendo%20-%20Game%20Boy/Tetris%20%28World%29%20%28Rev%201%29.zip", games[0].URL)
	assert.Equal(t, "https://thumbs.test/Nintendo%20-%20Game%20Boy/Named_Boxarts/Tetris%20%28World%29%20%28Rev%201%29.png", games[0].Thumbnail)

	assert.Equal(t, "Pokemon - Red Version", games[1].Name)
	assert.Equal(t, "RPG", games[1].Category)
}

func TestIndexSourceWithoutThumbnails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, listingHTML)
	}))
	defer srv.Close()

	src := NewIndexSource(srv.URL, map[string]string{"gb": "gb"}, testFetcher(), fixedCategorizer())
	src.Logger = logging.Nop

	games, err := src.FetchAll(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, games)
	assert.Empty(t, games[0].Thumbnail)
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "Super Mario Bros. 3", cleanTitle("Super Mario Bros. 3 (USA) (Rev 1)"))
	assert.Equal(t, "Contra", cleanTitle("Contra [!]"))
	assert.Equal(t, "Kirby", cleanTitle("Kirby"))
	assert.Equal(t, "", cleanTitle("(Unl)"))
}

func TestMirrorSourceFetchAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/games", r.URL.Path)
		fmt.Fprint(w, `[
			{"title":" Sonic the Hedgehog ","platform":"Genesis","link":"https://m.test/sonic.zip","image":"https://m.test/sonic.png"},
			{"title":"","platform":"nes"},
			{"title":"No platform"}
		]`)
	}))
	defer srv.Close()

	src := NewMirrorSource(srv.URL+"/", testFetcher(), fixedCategorizer())
	games, err := src.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, games, 1)

	assert.Equal(t, "Sonic the Hedgehog", games[0].Name)
	assert.Equal(t, "genesis", games[0].System)
	assert.Equal(t, "https://m.test/sonic.zip", games[0].URL)
	assert.Equal(t, "https://m.test/sonic.png", games[0].Thumbnail)
	assert.Equal(t, "Platformer", games[0].Category)
	assert.Equal(t, "mirror", games[0].Source)
}

func TestMirrorSourceFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	}))
	defer srv.Close()

	games, err := NewMirrorSource(srv.URL, testFetcher(), fixedCategorizer()).FetchAll(context.Background())
	assert.Nil(t, games)
	assert.Error(t, err)
}

func TestFetcherTimeoutIsLocal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	f := NewFetcher(20*time.Millisecond, 0)
	_, err := f.Get(context.Background(), "slow", srv.URL)
	assert.Error(t, err)
}

func TestThrottleSpacesRequests(t *testing.T) {
	th := NewThrottle(40 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, th.Wait(ctx))
	}
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestFromConfigRegistrationOrder(t *testing.T) {
	cfg := utils.SourcesConfig{
		RequestTimeout:   time.Second,
		ArchiveBaseURL:   "https://archive.test",
		ArchivePlatforms: map[string]string{"nes": "nes-roms"},
		IndexBaseURL:     "https://index.test",
		IndexPlatforms:   map[string]string{"nes": "/nes/"},
		MirrorBaseURL:    "https://mirror.test",
	}

	sources := FromConfig(cfg, fixedCategorizer())
	require.Len(t, sources, 3)
	assert.Equal(t, "archive", sources[0].Name())
	assert.Equal(t, "index", sources[1].Name())
	assert.Equal(t, "mirror", sources[2].Name())

	cfg.MirrorBaseURL = ""
	cfg.IndexPlatforms = nil
	assert.Len(t, FromConfig(cfg, fixedCategorizer()), 1)
}
