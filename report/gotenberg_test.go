package report

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "3.94", r.FormValue("paperWidth"))
		f, _, err := r.FormFile("files")
		require.NoError(t, err)
		html, _ := io.ReadAll(f)
		require.Contains(t, string(html), "<h1>")
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	pdf, err := NewClient(srv.URL+"/").RenderHTML(context.Background(), "<h1>x</h1>", Label)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.7", string(pdf))
}

func TestRenderHTMLErrors(t *testing.T) {
	_, err := NewClient("").RenderHTML(context.Background(), "", A4)
	require.ErrorIs(t, err, ErrDisabled)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()
	_, err = NewClient(srv.URL).RenderHTML(context.Background(), "<p/>", A4)
	require.ErrorContains(t, err, "502")
}
