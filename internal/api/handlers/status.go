package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/seriarr/seriarr/internal/controllers"
	"github.com/seriarr/seriarr/internal/models"
	"github.com/sirupsen/logrus"
)

const recentGrabLimit = 20

// StatusHandler reports the per-series timeline counts from the last pass
// and the most recent grab history.
type StatusHandler struct {
	reconcileCtrl *controllers.ReconcileController
	db            *models.Database
	logger        *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(reconcileCtrl *controllers.ReconcileController, db *models.Database, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		reconcileCtrl: reconcileCtrl,
		db:            db,
		logger:        logger,
	}
}

// GrabInfo is one grab history line in the status response.
type GrabInfo struct {
	Series    string    `json:"series"`
	Number    int       `json:"number"`
	FileName  string    `json:"file_name"`
	GrabbedAt time.Time `json:"grabbed_at"`
}

// StatusResponse represents the status response
type StatusResponse struct {
	Series      []controllers.SeriesSummary `json:"series"`
	TotalGrabs  int                         `json:"total_grabs"`
	RecentGrabs []GrabInfo                  `json:"recent_grabs"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := StatusResponse{
		Series:      h.reconcileCtrl.Summary(),
		RecentGrabs: []GrabInfo{},
	}

	total, err := h.db.CountGrabs()
	if err != nil {
		h.logger.WithError(err).Error("Failed to count grabs")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	response.TotalGrabs = total

	records, err := h.db.GetRecentGrabs(recentGrabLimit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get recent grabs")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	for _, record := range records {
		response.RecentGrabs = append(response.RecentGrabs, GrabInfo{
			Series:    record.Series,
			Number:    record.Number,
			FileName:  record.FileName,
			GrabbedAt: record.GrabbedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
