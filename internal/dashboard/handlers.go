package dashboard

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/KaramelBytes/fraudlens/internal/analysis"
	"github.com/KaramelBytes/fraudlens/internal/chart"
	"github.com/KaramelBytes/fraudlens/internal/classifier"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Status  int    `json:"status"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// PredictResponse is the JSON form of a report.
type PredictResponse struct {
	ID          string                `json:"id"`
	Name        string                `json:"name,omitempty"`
	Alert       string                `json:"alert"`
	Summary     analysis.Summary      `json:"summary"`
	Histogram   chart.Histogram       `json:"histogram"`
	Pie         chart.Pie             `json:"pie"`
	Top         []analysis.TopListing `json:"top"`
	FilledCells int                   `json:"filled_cells"`
	Model       *classifier.Info      `json:"model,omitempty"`
	DownloadURL string                `json:"download_url"`
	Charts      map[string]string     `json:"charts"`
}

// Kinds used for failures outside the pipeline.
const (
	kindRequest  = "request"
	kindNotReady = "not_ready"
	kindNotFound = "not_found"
)

type pageData struct {
	Report      *analysis.Report
	Alert       string
	Success     string
	Error       string
	ModelState  string
	MaxUploadMB int64
}

type requestError struct {
	status int
	kind   string
	msg    string
	err    error
}

func (s *Server) page() pageData {
	return pageData{ModelState: s.holder.State().String(), MaxUploadMB: s.cfg.MaxUploadBytes >> 20}
}

func (s *Server) handleIndex(c *gin.Context) {
	s.render(c, http.StatusOK, s.page())
}

// UploadedMessage confirms that the upload was read as CSV.
const UploadedMessage = "✅ File uploaded and loaded successfully!"

func (s *Server) handleUpload(c *gin.Context) {
	data := s.page()
	rep, rerr := s.process(c)
	if rerr != nil {
		switch analysis.ErrorKind(rerr.kind) {
		case analysis.KindValidation, analysis.KindModel, analysis.KindSerialization:
			// parsed fine; the failure came later
			data.Success = UploadedMessage
		}
		data.Error = rerr.msg
		s.render(c, rerr.status, data)
		return
	}
	data.Report = rep
	data.Success = UploadedMessage
	data.Alert = rep.Summary.AlertText()
	s.render(c, http.StatusOK, data)
}

// handlePredict godoc
// @Summary      Score a job listings CSV
// @Description  Runs the fraud report pipeline on an uploaded CSV (multipart field "file" or a raw text/csv body)
// @Tags         predict
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "Job listings CSV with a description column"
// @Success      200  {object}  PredictResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Failure      502  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /predict [post]
func (s *Server) handlePredict(c *gin.Context) {
	rep, rerr := s.process(c)
	if rerr != nil {
		c.JSON(rerr.status, ErrorResponse{
			Status:  rerr.status,
			Kind:    rerr.kind,
			Message: rerr.msg,
			Error:   errString(rerr.err),
		})
		return
	}
	c.JSON(http.StatusOK, toResponse(rep))
}

// handleReport godoc
// @Summary      Fetch a stored report
// @Tags         predict
// @Produce      json
// @Param        id   path      string  true  "Report ID"
// @Success      200  {object}  PredictResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /reports/{id} [get]
func (s *Server) handleReport(c *gin.Context) {
	rep, ok := s.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, notFound())
		return
	}
	c.JSON(http.StatusOK, toResponse(rep))
}

func (s *Server) handleDownload(c *gin.Context) {
	rep, ok := s.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, notFound())
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", analysis.ResultFileName))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", rep.CSV)
}

func (s *Server) handleChart(c *gin.Context) {
	rep, ok := s.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, notFound())
		return
	}
	file := c.Param("file")
	ext := path.Ext(file)
	format, err := chart.ParseFormat(ext)
	if err != nil {
		c.JSON(http.StatusNotFound, notFound())
		return
	}

	var buf bytes.Buffer
	switch strings.TrimSuffix(file, ext) {
	case "histogram":
		err = chart.RenderHistogram(&buf, rep.Histogram, format)
	case "pie":
		err = chart.RenderPie(&buf, rep.Pie, format)
	default:
		c.JSON(http.StatusNotFound, notFound())
		return
	}
	if errors.Is(err, chart.ErrNoData) {
		c.JSON(http.StatusNotFound, ErrorResponse{Status: http.StatusNotFound, Kind: kindNotFound, Message: analysis.NoDataMessage, Error: err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("render chart failed", "id", rep.ID, "chart", file, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Status: http.StatusInternalServerError, Kind: string(analysis.KindSerialization), Message: "❌ Error: " + err.Error(), Error: err.Error()})
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// handleHealth godoc
// @Summary      Health and model readiness
// @Tags         health
// @Produce      json
// @Success      200  {object}  object
// @Failure      503  {object}  object
// @Router       /health [get]
func (s *Server) handleHealth(c *gin.Context) {
	state := s.holder.State()
	body := gin.H{
		"status":  "OK",
		"service": ServiceName,
		"model":   state.String(),
	}
	if state != classifier.StateReady {
		body["status"] = "UNAVAILABLE"
		if err := s.holder.Err(); err != nil {
			body["error"] = err.Error()
		}
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

// process reads the upload, runs the pipeline and stores the report.
func (s *Server) process(c *gin.Context) (*analysis.Report, *requestError) {
	name, data, rerr := s.readUpload(c)
	if rerr != nil {
		return nil, rerr
	}
	clf, err := s.holder.Classifier()
	if err != nil {
		return nil, &requestError{
			status: http.StatusServiceUnavailable,
			kind:   kindNotReady,
			msg:    "❌ Error: the fraud model is not ready yet, try again shortly.",
			err:    err,
		}
	}

	rep, err := analysis.NewPipeline(clf, s.cfg.Analysis, s.logger).Run(c.Request.Context(), name, data)
	if err != nil {
		return nil, &requestError{status: statusFor(err), kind: string(analysis.KindOf(err)), msg: analysis.UserMessage(err), err: err}
	}
	s.store.Put(rep)
	return rep, nil
}

// readUpload accepts multipart field "file" or, for the API, a raw body.
func (s *Server) readUpload(c *gin.Context) (string, []byte, *requestError) {
	ct := c.ContentType()
	if ct != "multipart/form-data" {
		if c.Request.URL.Path == "/upload" || c.Request.Body == nil {
			return "", nil, badRequest("❌ Error: no file uploaded", nil)
		}
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return "", nil, s.bodyError(err)
		}
		return c.DefaultQuery("name", "upload.csv"), data, nil
	}

	fh, err := c.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			return "", nil, s.bodyError(err)
		}
		return "", nil, badRequest("❌ Error: no file uploaded", err)
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".csv") {
		return "", nil, badRequest("❌ Error: only .csv files are accepted", fmt.Errorf("unsupported file %q", fh.Filename))
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, badRequest("❌ Error: "+err.Error(), err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, s.bodyError(err)
	}
	return fh.Filename, data, nil
}

func (s *Server) bodyError(err error) *requestError {
	if isTooLarge(err) {
		return &requestError{
			status: http.StatusRequestEntityTooLarge,
			kind:   kindRequest,
			msg:    fmt.Sprintf("❌ Error: upload exceeds the %d MB limit", s.cfg.MaxUploadBytes>>20),
			err:    err,
		}
	}
	return badRequest("❌ Error: "+err.Error(), err)
}

func (s *Server) render(c *gin.Context, status int, data pageData) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "index.html", data); err != nil {
		s.logger.Error("render page failed", "error", err)
		c.String(http.StatusInternalServerError, "❌ Error: %v", err)
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

func toResponse(rep *analysis.Report) PredictResponse {
	return PredictResponse{
		ID:          rep.ID,
		Name:        rep.Name,
		Alert:       rep.Summary.AlertText(),
		Summary:     rep.Summary,
		Histogram:   rep.Histogram,
		Pie:         rep.Pie,
		Top:         rep.Top,
		FilledCells: rep.FilledCells,
		Model:       rep.Model,
		DownloadURL: "/download/" + rep.ID,
		Charts: map[string]string{
			"histogram": "/charts/" + rep.ID + "/histogram.svg",
			"pie":       "/charts/" + rep.ID + "/pie.svg",
		},
	}
}

// statusFor maps a pipeline error kind to an HTTP status.
func statusFor(err error) int {
	switch analysis.KindOf(err) {
	case analysis.KindValidation:
		return http.StatusUnprocessableEntity
	case analysis.KindParse:
		return http.StatusBadRequest
	case analysis.KindModel:
		if errors.Is(err, classifier.ErrNotReady) {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

func badRequest(msg string, err error) *requestError {
	return &requestError{status: http.StatusBadRequest, kind: kindRequest, msg: msg, err: err}
}

func notFound() ErrorResponse {
	return ErrorResponse{
		Status:  http.StatusNotFound,
		Kind:    kindNotFound,
		Message: "❌ Error: result not found or expired, upload the file again",
		Error:   "not found",
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
