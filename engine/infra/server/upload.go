package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/compozy/tdlimport/engine/infra/server/router"
	"github.com/compozy/tdlimport/engine/infra/store"
	"github.com/compozy/tdlimport/engine/ingest"
	"github.com/compozy/tdlimport/engine/tdl"
)

// UploadField is the multipart field carrying the TDL file.
const UploadField = "tdlFile"

// UploadResponse is the JSON body of a successful upload.
type UploadResponse struct {
	Message string         `json:"message"`
	Data    *ingest.Result `json:"data"`
}

func (s *Server) handleForm(c *gin.Context) {
	c.HTML(http.StatusOK, "form.html", formPage{})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"driver": s.driver,
	})
}

func (s *Server) handleUpload(c *gin.Context) {
	name, data, err := s.readUpload(c)
	if err != nil {
		s.respondFailure(c, name, "", err)
		return
	}
	res, err := s.ingester.Run(c.Request.Context(), ingest.Request{Name: name, Data: data})
	if err != nil {
		dest := ""
		if res != nil {
			dest = res.Destination
		}
		s.respondFailure(c, name, dest, err)
		return
	}
	msg := fmt.Sprintf("File [%s] uploaded successfully.", res.Destination)
	switch c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) {
	case gin.MIMEJSON:
		c.JSON(http.StatusOK, UploadResponse{Message: msg, Data: res})
	default:
		c.HTML(http.StatusOK, "form.html", formPage{Banner: successBanner(res.Destination, res.Inserted)})
	}
}

// readUpload extracts the uploaded file. Errors are usage errors.
func (s *Server) readUpload(c *gin.Context) (string, []byte, error) {
	fh, err := c.FormFile(UploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, errTooLarge(s.cfg.Ingest.MaxUploadBytes)
		}
		return "", nil, &ingest.UsageError{Reason: "missing " + UploadField + " field", Err: ingest.ErrNoFile}
	}
	if fh.Size > s.cfg.Ingest.MaxUploadBytes {
		return fh.Filename, nil, errTooLarge(s.cfg.Ingest.MaxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return fh.Filename, nil, &ingest.UsageError{Reason: "open uploaded file", Err: err}
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return fh.Filename, nil, &ingest.UsageError{Reason: "read uploaded file", Err: err}
	}
	if len(data) == 0 {
		return fh.Filename, nil, &ingest.UsageError{Reason: "uploaded file is empty", Err: ingest.ErrNoFile}
	}
	if !isText(data) {
		return fh.Filename, nil, &unsupportedFileError{mime: mimetype.Detect(data).String()}
	}
	return fh.Filename, data, nil
}

// isText accepts anything mimetype classifies under text/plain, which
// covers XML in every Unicode encoding.
func isText(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

type unsupportedFileError struct {
	mime string
}

func (e *unsupportedFileError) Error() string {
	return fmt.Sprintf("uploaded file is %s, not a text document", e.mime)
}

type tooLargeError struct {
	limit int64
}

func (e *tooLargeError) Error() string {
	return fmt.Sprintf("uploaded file exceeds %d bytes", e.limit)
}

func errTooLarge(limit int64) error {
	return &tooLargeError{limit: limit}
}

func (s *Server) respondFailure(c *gin.Context, name, dest string, err error) {
	if dest == "" {
		dest, _ = store.DestinationName(name, s.cfg.Ingest.DestinationSuffix)
	}
	problem := problemFor(err)
	problem.Instance = c.Request.URL.Path
	if dest != "" {
		problem.Extras = map[string]any{"destination": dest}
	}
	switch c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) {
	case gin.MIMEJSON:
		router.RespondProblem(c, problem)
	default:
		_ = c.Error(err)
		c.HTML(problem.Status, "form.html", formPage{Banner: failureBanner(dest, problem.Detail)})
	}
}

// problemFor maps a pipeline error to its HTTP problem.
func problemFor(err error) *router.Problem {
	var (
		decodeErr   *tdl.DecodeError
		tooLarge    *tooLargeError
		unsupported *unsupportedFileError
	)
	switch {
	case errors.As(err, &tooLarge):
		return &router.Problem{Status: http.StatusRequestEntityTooLarge, Code: router.ErrTooLargeCode, Detail: err.Error()}
	case errors.As(err, &unsupported):
		return &router.Problem{Status: http.StatusBadRequest, Code: router.ErrUnsupportedFileCode, Detail: err.Error()}
	case ingest.IsUsageError(err):
		return &router.Problem{Status: http.StatusBadRequest, Code: router.ErrUsageCode, Detail: err.Error()}
	case errors.As(err, &decodeErr):
		return &router.Problem{Status: http.StatusUnprocessableEntity, Code: router.ErrDecodeCode, Detail: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return &router.Problem{Status: http.StatusInternalServerError, Code: router.ErrTimeoutCode, Detail: "ingestion timed out and was rolled back"}
	case store.IsFault(err):
		return &router.Problem{Status: http.StatusInternalServerError, Code: router.ErrStoreFaultCode, Detail: "storage failure; the upload was rolled back"}
	default:
		return &router.Problem{Status: http.StatusInternalServerError, Code: router.ErrInternalCode, Detail: "upload failed"}
	}
}
