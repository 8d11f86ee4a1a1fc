package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/skip2/go-qrcode"
)

// QR code sizes in pixels.
const (
	DefaultQRSize = 256
	MinQRSize     = 64
	MaxQRSize     = 1024
)

// ShareHandler renders a QR code pointing at the page, so a phone on the same
// network can open it.
type ShareHandler struct{}

// NewShareHandler creates a ShareHandler.
func NewShareHandler() *ShareHandler {
	return &ShareHandler{}
}

// ServeHTTP handles GET /api/qr. The code encodes ?url= when given, otherwise
// the root of the host the request came in on. ?size= sets the edge length.
func (h *ShareHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	target := r.URL.Query().Get("url")
	if target == "" {
		target = (&url.URL{Scheme: "http", Host: r.Host, Path: "/"}).String()
	} else if u, err := url.Parse(target); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		writeError(w, http.StatusBadRequest, "url must be an http or https URL")
		return
	}

	size := DefaultQRSize
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < MinQRSize || n > MaxQRSize {
			writeError(w, http.StatusBadRequest, "size must be between 64 and 1024")
			return
		}
		size = n
	}

	png, err := qrcode.Encode(target, qrcode.Medium, size)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}
