package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realAndi/PWAChat/models"
	"github.com/realAndi/PWAChat/pkg"
	"github.com/realAndi/PWAChat/pkg/identity"
)

func TestNewAPIRejectsBadURL(t *testing.T) {
	_, err := NewAPI("ftp://example.com")
	assert.ErrorIs(t, err, pkg.ErrValidation)

	_, err = NewAPI("://nope")
	assert.ErrorIs(t, err, pkg.ErrValidation)
}

func TestAPISendsIdentityAndDecodesEnvelope(t *testing.T) {
	var gotProfile string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotProfile = r.Header.Get(identity.HeaderProfileID)
		assert.Equal(t, "/api/chat/messages", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("cursor"))
		pkg.JSON(w, http.StatusOK, models.MessagePage{
			Messages: []models.Message{{ID: 3, AuthorID: "bob", Body: "hi", ReadBy: models.NewReadBySet("bob")}},
			HasMore:  true,
		})
	}))
	defer server.Close()

	api, err := NewAPI(server.URL, WithProfileID("alice"))
	require.NoError(t, err)

	page, err := api.Page(context.Background(), 7, 20)
	require.NoError(t, err)
	assert.Equal(t, "alice", gotProfile)
	require.Len(t, page.Messages, 1)
	assert.True(t, page.HasMore)
	assert.True(t, page.Messages[0].ReadBy.Has("bob"))
}

func TestAPIMapsErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{pkg.ErrValidation, pkg.ErrValidation},
		{pkg.ErrUnauthorized, pkg.ErrUnauthorized},
		{pkg.ErrNotFound, pkg.ErrNotFound},
		{pkg.ErrTransient, pkg.ErrTransient},
		{errors.New("boom"), pkg.ErrInternal},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pkg.Error(w, tc.err)
		}))

		api, err := NewAPI(server.URL)
		require.NoError(t, err)
		_, err = api.Send(context.Background(), "x")
		assert.ErrorIs(t, err, tc.want, tc.err.Error())
		server.Close()
	}
}

func TestAPIRateLimitCarriesRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		pkg.ErrorWithMessage(w, http.StatusTooManyRequests, "slow down")
	}))
	defer server.Close()

	api, err := NewAPI(server.URL, WithToken("tok"))
	require.NoError(t, err)

	_, err = api.Send(context.Background(), "x")
	require.ErrorIs(t, err, pkg.ErrRateLimited)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 3*time.Second, apiErr.RetryAfter)
	assert.Equal(t, "slow down", apiErr.Message)
}

func TestAPIUnreachableIsTransient(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	api, err := NewAPI(url)
	require.NoError(t, err)
	_, err = api.ActiveCount(context.Background())
	assert.ErrorIs(t, err, pkg.ErrTransient)
}

func TestWebsocketURL(t *testing.T) {
	api, err := NewAPI("https://chat.example.com/base/", WithProfileID("alice"))
	require.NoError(t, err)
	assert.Equal(t, "wss://chat.example.com/base/ws?profile_id=alice", api.WebsocketURL())

	api, err = NewAPI("http://localhost:9090", WithToken("abc"))
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:9090/ws?token=abc", api.WebsocketURL())
}

type stubSource struct {
	page *models.MessagePage
	err  error
	got  []int64
}

func (s *stubSource) Page(_ context.Context, cursor int64, _ int) (*models.MessagePage, error) {
	s.got = append(s.got, cursor)
	return s.page, s.err
}

func TestPagerEndOfHistory(t *testing.T) {
	full := make([]models.Message, models.PageSize)
	src := &stubSource{page: &models.MessagePage{Messages: full, HasMore: true}}
	p := NewPager(src, 0)

	page, err := p.LoadInitial(context.Background())
	require.NoError(t, err)
	assert.False(t, page.EndOfHistory)

	src.page = &models.MessagePage{Messages: full[:3], HasMore: false}
	page, err = p.LoadOlder(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, page.EndOfHistory)
	assert.Len(t, page.Messages, 3)
	assert.Equal(t, []int64{0, 42}, src.got)

	_, err = p.LoadOlder(context.Background(), 0)
	assert.ErrorIs(t, err, pkg.ErrValidation)
}

func TestPagerPropagatesErrors(t *testing.T) {
	p := NewPager(&stubSource{err: pkg.ErrTransient}, 10)
	assert.Equal(t, 10, p.Size())

	_, err := p.LoadInitial(context.Background())
	assert.ErrorIs(t, err, pkg.ErrTransient)
}
