package transport

import (
	"embed"
	"net/http"
)

//go:embed web/controller.html web/viewer.html
var staticPages embed.FS

// StaticPages serves the controller/viewer HTML pages embedded in the
// binary. Neither page is templated per streamId: the page's own
// client-side script reads the stream ID from the URL to open the
// corresponding WebSocket, matching original_source/main.py's FileResponse
// of a single static index.html/watch.html regardless of stream_id.
type StaticPages struct{}

var _ PageRenderer = StaticPages{}

func (StaticPages) ControllerPage(w http.ResponseWriter, r *http.Request, _ string) {
	serveEmbedded(w, r, "web/controller.html")
}

func (StaticPages) ViewerPage(w http.ResponseWriter, r *http.Request, _ string) {
	serveEmbedded(w, r, "web/viewer.html")
}

func serveEmbedded(w http.ResponseWriter, _ *http.Request, path string) {
	data, err := staticPages.ReadFile(path)
	if err != nil {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
