package controller

import (
	"net/http"

	"github.com/41vi4p/TankLens/internal/utils"
)

// SyncControl is the pause/resume surface of the background poller.
type SyncControl interface {
	Pause()
	Resume()
	Paused() bool
}

// SyncController exposes the poller's pause/resume signal over HTTP so
// operators can quiesce the pipeline without restarting the server.
type SyncController struct {
	control SyncControl
}

// NewSyncController creates a new SyncController.
func NewSyncController(control SyncControl) *SyncController {
	return &SyncController{control: control}
}

// PauseSync handles POST /sync/pause.
func (c *SyncController) PauseSync(w http.ResponseWriter, r *http.Request) {
	c.control.Pause()
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{"paused": true})
}

// ResumeSync handles POST /sync/resume. Resuming triggers an immediate
// one-shot run before the interval resumes.
func (c *SyncController) ResumeSync(w http.ResponseWriter, r *http.Request) {
	c.control.Resume()
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{"paused": false})
}

// SyncStatus handles GET /sync.
func (c *SyncController) SyncStatus(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{"paused": c.control.Paused()})
}
