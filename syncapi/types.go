package syncapi

import (
	"github.com/mmdatafocus/fieldsales_backend/models"
	"github.com/mmdatafocus/fieldsales_backend/syncer"
)

type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SubmitResponse answers every request that queues work on the pool.
type SubmitResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

type RunResponse struct {
	RunID   string            `json:"run_id"`
	Done    bool              `json:"done"`
	Outcome *syncer.Outcome   `json:"outcome,omitempty"`
	Kinds   []*models.SyncRun `json:"kinds"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Cause string `json:"cause,omitempty"`
}
