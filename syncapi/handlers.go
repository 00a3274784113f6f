// Package syncapi is the local HTTP surface of the sync service. Long passes are queued on the
// worker pool and answered with 202 and a run id the client polls.
package syncapi

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mmdatafocus/fieldsales_backend/models"
	"github.com/mmdatafocus/fieldsales_backend/models/reports"
	"github.com/mmdatafocus/fieldsales_backend/session"
	"github.com/mmdatafocus/fieldsales_backend/snapshot"
	"github.com/mmdatafocus/fieldsales_backend/syncer"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

const maxUploadSizeBytes int64 = 16 * 1024 * 1024

var snapshotMimeTypes = map[string]bool{
	"":                         true,
	"application/xml":          true,
	"text/xml":                 true,
	"application/octet-stream": true,
}

type Server struct {
	Sync    syncer.Async
	Session *session.Holder
	Board   *Board
	Locale  string
	Logger  *logrus.Logger
}

func (s *Server) fail(c *gin.Context, err error) {
	msg, cause := utils.UserMessage(err, s.Locale)
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusOf(err), ErrorResponse{Error: msg, Kind: string(utils.KindOf(err)), Cause: cause})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, utils.ErrBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, utils.ErrSession):
		return http.StatusUnauthorized
	case errors.Is(err, utils.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, utils.ErrIntegrity):
		return http.StatusConflict
	case errors.Is(err, utils.ErrFormat), errors.Is(err, utils.ErrValidation), errors.Is(err, utils.ErrUnsupportedKind):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func accepted(c *gin.Context, runID string) {
	c.JSON(http.StatusAccepted, SubmitResponse{RunID: runID, Status: "queued"})
}

func (s *Server) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			s.fail(c, utils.ValidationError("login", err))
			return
		}
		id, err := s.Session.Authenticate(c.Request.Context(), req.Login, req.Password)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, id)
	}
}

func (s *Server) LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.Session.Logout()
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) SessionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := s.Session.Current()
		if !ok {
			s.fail(c, utils.ErrNoActiveSession)
			return
		}
		c.JSON(http.StatusOK, id)
	}
}

func (s *Server) ImportAllHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		runID, err := s.Sync.SubmitImportAll(c.Request.Context(), s.Board.Record)
		if err != nil {
			s.fail(c, err)
			return
		}
		accepted(c, runID)
	}
}

func (s *Server) ImportKindHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, err := snapshot.ParseKind(c.Param("kind"))
		if err == nil && !kind.Importable() {
			err = utils.UnsupportedKindError("import", string(kind))
		}
		if err != nil {
			s.fail(c, err)
			return
		}
		runID, err := s.Sync.SubmitImportKind(c.Request.Context(), kind, s.Board.Record)
		if err != nil {
			s.fail(c, err)
			return
		}
		accepted(c, runID)
	}
}

// UploadHandler imports a snapshot posted as the multipart field "file"; its file name picks the kind.
func (s *Server) UploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSizeBytes)
		header, err := c.FormFile("file")
		if err != nil {
			s.fail(c, utils.ValidationError("upload", err))
			return
		}
		name := filepath.Base(header.Filename)
		if header.Size > maxUploadSizeBytes {
			s.fail(c, utils.FormatError("upload", "%s is larger than %d bytes", name, maxUploadSizeBytes))
			return
		}
		mime := strings.ToLower(strings.TrimSpace(strings.Split(header.Header.Get("Content-Type"), ";")[0]))
		if !snapshotMimeTypes[mime] {
			s.fail(c, utils.FormatError("upload", "unsupported content type %q", mime))
			return
		}
		f, err := header.Open()
		if err != nil {
			s.fail(c, utils.StorageError("upload", err))
			return
		}
		defer f.Close()

		runID, err := s.Sync.SubmitImportStream(c.Request.Context(), f, name, s.Board.Record)
		if err != nil {
			s.fail(c, err)
			return
		}
		accepted(c, runID)
	}
}

// ExportHandler writes kind in mode; with ?send=true the files go to the mailer as well.
func (s *Server) ExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, err := snapshot.ParseKind(c.Param("kind"))
		if err != nil {
			s.fail(c, err)
			return
		}
		mode, ok := models.ParseExportMode(c.Param("mode"))
		if !ok || !snapshot.Exportable(kind, mode) {
			s.fail(c, utils.UnsupportedKindError("export", string(kind)+"/"+c.Param("mode")))
			return
		}
		ctx := c.Request.Context()
		var runID string
		if send, _ := strconv.ParseBool(c.Query("send")); send {
			runID, err = s.Sync.SubmitExportAndSend(ctx, kind, mode, s.Board.Record)
		} else {
			runID, err = s.Sync.SubmitExport(ctx, kind, mode, s.Board.Record)
		}
		if err != nil {
			s.fail(c, err)
			return
		}
		accepted(c, runID)
	}
}

func (s *Server) RunsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		runs, err := models.ListSyncRuns(c.Request.Context(), limit)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, runs)
	}
}

func (s *Server) RunHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		runID := c.Param("id")
		kinds, err := models.ListSyncRunsByRunID(c.Request.Context(), runID)
		if err != nil {
			s.fail(c, err)
			return
		}
		resp := RunResponse{RunID: runID, Kinds: kinds}
		if o, ok := s.Board.Get(runID); ok {
			resp.Done, resp.Outcome = true, &o
		} else if len(kinds) == 0 {
			s.fail(c, utils.NotFoundError("run", "run %s is unknown", runID))
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func (s *Server) CreateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewOrder
		if err := c.ShouldBindJSON(&input); err != nil {
			s.fail(c, utils.ValidationError("create order", err))
			return
		}
		order, err := models.CreateOrder(c.Request.Context(), &input)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}

func (s *Server) CreateMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewMember
		if err := c.ShouldBindJSON(&input); err != nil {
			s.fail(c, utils.ValidationError("create member", err))
			return
		}
		member, err := models.CreateMember(c.Request.Context(), &input)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, member)
	}
}

func (s *Server) CreateVisitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewVisit
		if err := c.ShouldBindJSON(&input); err != nil {
			s.fail(c, utils.ValidationError("create visit", err))
			return
		}
		visit, err := models.CreateVisit(c.Request.Context(), &input)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, visit)
	}
}

func (s *Server) OrdersReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		from, to := utils.GetThisMonthRange()
		if v := c.Query("from"); v != "" {
			from = utils.NormalizeDate(v)
		}
		if v := c.Query("to"); v != "" {
			to = utils.NormalizeDate(v)
		}
		rows, err := reports.GetOrdersByCounterpartReport(c.Request.Context(), from, to)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}
