package dummy

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

type ServerConfig struct {
	Port int

	// Upper bound of random latency added to every song endpoint
	MaxJitter time.Duration

	Logger *zap.Logger
}

type Song struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	URL          string `json:"url"`
	LikeCount    int    `json:"likeCount"`
	DislikeCount int    `json:"dislikeCount"`
	PlayCount    int    `json:"playCount"`
}

// Catalog is an in-memory song table.
type Catalog struct {
	mu    sync.RWMutex
	songs []Song
}

func NewCatalog(n int) *Catalog {
	c := &Catalog{songs: make([]Song, n)}
	for i := range c.songs {
		id := int64(i + 1)
		c.songs[i] = Song{
			ID:   id,
			Name: fmt.Sprintf("Track %02d", id),
			URL:  fmt.Sprintf("/media/songs/%d.mp3", id),
		}
	}
	return c
}

func (c *Catalog) List() []Song {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Song, len(c.songs))
	copy(out, c.songs)
	return out
}

// Play bumps the play counter of id.
func (c *Catalog) Play(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.songs {
		if c.songs[i].ID == id {
			c.songs[i].PlayCount++
			return true
		}
	}
	return false
}

func NewHandler(catalog *Catalog, maxJitter time.Duration) http.Handler {
	mux := http.NewServeMux()

	jitter := func() {
		if maxJitter > 0 {
			time.Sleep(time.Duration(rand.Int63n(int64(maxJitter))))
		}
	}

	mux.HandleFunc("GET /api/public/songs/get", func(w http.ResponseWriter, r *http.Request) {
		jitter()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(catalog.List())
	})

	mux.HandleFunc("POST /api/public/songs/play/{id}", func(w http.ResponseWriter, r *http.Request) {
		jitter()
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid song id", http.StatusBadRequest)
			return
		}
		// The real endpoint answers 200 even for unknown ids.
		catalog.Play(id)
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	return mux
}

// Start serves the fake song API in the background.
func Start(cfg ServerConfig) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	fmt.Printf("👻 Dummy Server running on http://localhost%s\n", addr)
	fmt.Println("   Endpoints: GET /api/public/songs/get, POST /api/public/songs/play/{id}, GET /healthz")

	server := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(NewCatalog(20), cfg.MaxJitter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("dummy server failed", zap.Error(err))
		}
	}()

	return server
}
