package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotify(t *testing.T) {
	var gotPath, gotChat, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotPath = r.URL.Path
		gotChat = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	bot := NewBotWithURL(srv.URL, "TOKEN", "42")
	require.NoError(t, bot.Notify(context.Background(), "New booking"))

	assert.Equal(t, "/botTOKEN/sendMessage", gotPath)
	assert.Equal(t, "42", gotChat)
	assert.Equal(t, "New booking", gotText)
}

func TestNotifyAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := NewBotWithURL(srv.URL, "bad", "42").Notify(context.Background(), "hi")
	assert.Error(t, err)
}
