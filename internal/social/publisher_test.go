package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carousel-service/internal/models"
)

// publishAPIStub - тестовый сервер API публикации.
type publishAPIStub struct {
	mu          sync.Mutex
	uploads     int
	remoteURLs  []string
	carouselReq createCarouselReq
	failStatus  int // Если не ноль, все ответы идут с этим статусом
}

func (s *publishAPIStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/media", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.failStatus != 0 {
			http.Error(w, "declined", s.failStatus)
			return
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.uploads++
		_ = json.NewEncoder(w).Encode(uploadMediaResp{MediaID: fmt.Sprintf("media-%d", s.uploads)})
	})
	mux.HandleFunc("/media/remote", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.failStatus != 0 {
			http.Error(w, "declined", s.failStatus)
			return
		}
		var req remoteMediaReq
		_ = json.NewDecoder(r.Body).Decode(&req)
		s.remoteURLs = append(s.remoteURLs, req.URL)
		_ = json.NewEncoder(w).Encode(uploadMediaResp{MediaID: "media-remote"})
	})
	mux.HandleFunc("/carousels", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.failStatus != 0 {
			http.Error(w, "declined", s.failStatus)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&s.carouselReq)
		_ = json.NewEncoder(w).Encode(createCarouselResp{PostID: "post-42"})
	})
	return mux
}

func TestHTTPPublisher_PublishCarousel(t *testing.T) {
	stub := &publishAPIStub{}
	server := httptest.NewServer(stub.handler())
	defer server.Close()

	publisher := NewHTTPPublisher(zap.NewNop(), server.URL, "test-token", 5*time.Second)

	media := []MediaItem{
		{Ordinal: 0, URL: "https://cdn.example.com/original.png"},
		{Ordinal: 1, Bytes: []byte("title-image"), Format: "png"},
		{Ordinal: 2, Bytes: []byte("content-image"), Format: "png"},
	}

	postID, err := publisher.PublishCarousel(context.Background(), media, "caption text")

	require.NoError(t, err)
	assert.Equal(t, "post-42", postID)
	assert.Equal(t, []string{"https://cdn.example.com/original.png"}, stub.remoteURLs)
	// Media_id идут строго в порядке слайдов: original первым.
	assert.Equal(t, []string{"media-remote", "media-1", "media-2"}, stub.carouselReq.MediaIDs)
	assert.Equal(t, "caption text", stub.carouselReq.Caption)
}

func TestHTTPPublisher_ErrorClassification(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		class     models.PublishErrorClass
		retryable bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, class: models.PublishErrAuth, retryable: false},
		{name: "forbidden", status: http.StatusForbidden, class: models.PublishErrForbidden, retryable: false},
		{name: "rate limited", status: http.StatusTooManyRequests, class: models.PublishErrRateLimited, retryable: true},
		{name: "server error", status: http.StatusInternalServerError, class: models.PublishErrServer, retryable: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &publishAPIStub{failStatus: tc.status}
			server := httptest.NewServer(stub.handler())
			defer server.Close()

			publisher := NewHTTPPublisher(zap.NewNop(), server.URL, "test-token", 5*time.Second)

			_, err := publisher.PublishCarousel(context.Background(), []MediaItem{{Ordinal: 0, Bytes: []byte("img"), Format: "png"}}, "caption")

			var publishErr *models.PublishError
			require.True(t, errors.As(err, &publishErr), "failures must surface as PublishError")
			assert.Equal(t, tc.status, publishErr.StatusCode)
			assert.Equal(t, tc.class, publishErr.Class)
			assert.Equal(t, tc.retryable, publishErr.Retryable())
		})
	}
}

func TestHTTPPublisher_TransportErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // Сервер уже закрыт: соединение откажет.

	publisher := NewHTTPPublisher(zap.NewNop(), server.URL, "test-token", time.Second)

	_, err := publisher.PublishCarousel(context.Background(), []MediaItem{{Ordinal: 0, Bytes: []byte("img"), Format: "png"}}, "caption")

	var publishErr *models.PublishError
	require.True(t, errors.As(err, &publishErr))
	assert.Equal(t, models.PublishErrServer, publishErr.Class, "transport failures count as retryable server errors")
	assert.True(t, publishErr.Retryable())
}
