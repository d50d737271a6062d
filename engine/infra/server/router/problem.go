package router

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compozy/tdlimport/pkg/logger"
)

// Problem codes returned in the "code" member.
const (
	ErrInternalCode        = "INTERNAL_ERROR"
	ErrUsageCode           = "USAGE_ERROR"
	ErrUnsupportedFileCode = "UNSUPPORTED_FILE"
	ErrTooLargeCode        = "FILE_TOO_LARGE"
	ErrDecodeCode          = "DECODE_ERROR"
	ErrStoreFaultCode      = "STORE_FAULT"
	ErrTimeoutCode         = "OPERATION_TIMEOUT"
)

// ProblemContentType is the media type of RFC 7807 bodies.
const ProblemContentType = "application/problem+json"

// Problem is an RFC 7807 problem detail.
type Problem struct {
	Type     string
	Title    string
	Status   int
	Detail   string
	Instance string
	Code     string
	Extras   map[string]any
}

// NormalizeProblem fills canonical defaults.
func NormalizeProblem(problem *Problem) *Problem {
	if problem == nil {
		problem = &Problem{}
	}
	if problem.Status == 0 {
		problem.Status = http.StatusInternalServerError
	}
	if problem.Title == "" {
		problem.Title = http.StatusText(problem.Status)
	}
	if problem.Type == "" {
		problem.Type = "about:blank"
	}
	return problem
}

// Body assembles the serialized representation of the problem. Extras never
// override the standard members.
func (p *Problem) Body() map[string]any {
	body := make(map[string]any, len(p.Extras)+6)
	for k, v := range p.Extras {
		body[k] = v
	}
	body["type"] = p.Type
	body["title"] = p.Title
	body["status"] = p.Status
	if p.Detail != "" {
		body["detail"] = p.Detail
	}
	if p.Instance != "" {
		body["instance"] = p.Instance
	}
	if p.Code != "" {
		body["code"] = p.Code
	}
	return body
}

// RespondProblem writes a problem response and aborts the chain.
func RespondProblem(c *gin.Context, problem *Problem) {
	prepared := NormalizeProblem(problem)
	logProblem(c, prepared)
	payload, err := json.Marshal(prepared.Body())
	if err != nil {
		logger.FromContext(c.Request.Context()).Error("failed to marshal problem", "error", err)
		c.Data(http.StatusInternalServerError, ProblemContentType, []byte(`{"status":500,"title":"Internal Server Error"}`))
		c.Abort()
		return
	}
	c.Data(prepared.Status, ProblemContentType, payload)
	c.Abort()
}

// RespondProblemWithCode writes a problem response with a code and detail.
func RespondProblemWithCode(c *gin.Context, status int, code, detail string) {
	RespondProblem(c, &Problem{Status: status, Code: code, Detail: detail})
}

func logProblem(c *gin.Context, problem *Problem) {
	log := logger.FromContext(c.Request.Context())
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	fields := []any{
		"status", problem.Status,
		"title", problem.Title,
		"detail", problem.Detail,
		"route", route,
	}
	if problem.Code != "" {
		fields = append(fields, "code", problem.Code)
	}
	if requestID := c.Request.Header.Get("X-Request-ID"); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}
	if problem.Status >= http.StatusInternalServerError {
		log.Error("request failed", fields...)
		return
	}
	log.Warn("request failed", fields...)
}
