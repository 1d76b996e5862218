package dummy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	catalog := NewCatalog(3)
	srv := httptest.NewServer(NewHandler(catalog, 0))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/public/songs/play/2", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/public/songs/play/abc", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/public/songs/get")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var songs []Song
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&songs))
	require.Len(t, songs, 3)
	assert.Equal(t, 0, songs[0].PlayCount)
	assert.Equal(t, 1, songs[1].PlayCount)

	resp, err = http.Get(srv.URL + "/api/public/songs/play/1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
