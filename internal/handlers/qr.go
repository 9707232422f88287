package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	svc "github.com/lojf/kidcare/internal/services"
)

// GET /api/children/{id}/history/{historyID}/qr.png renders the prepared
// messenger link so it can be opened from a phone.
func (a *API) HistoryQR(w http.ResponseWriter, r *http.Request) {
	child, err := svc.FindChild(a.Store.Children.Get(), chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	hid := chi.URLParam(r, "historyID")
	link := ""
	for _, h := range child.NotificationHistory {
		if h.ID == hid {
			link = h.Link
			break
		}
	}
	if link == "" {
		http.NotFound(w, r)
		return
	}

	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "failed to generate qr", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
