// Package integrations provides local stand-ins for the hosted file upload
// and email services. Nothing leaves the process.
package integrations

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/trackerhub/internal/sanitize"
	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

// File is an uploaded file.
type File struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"data"`
}

// FileResult locates an uploaded file.
type FileResult struct {
	FileURL string `json:"file_url"`
}

// Email is an outgoing message.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EmailResult reports the outcome of SendEmail.
type EmailResult struct {
	Success bool `json:"success"`
}

// Service implements the integration stubs.
type Service struct {
	log *zap.Logger
}

// New returns a Service that logs through log. A nil logger is replaced by
// a no-op logger.
func New(log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{log: log}
}

// UploadFile encodes f as a data URL. The content type is sniffed from the
// payload when f does not carry one.
func (s *Service) UploadFile(f File) (FileResult, error) {
	if len(f.Data) == 0 {
		return FileResult{}, fmt.Errorf("%w: empty file %q", types.ErrInvalidData, f.Name)
	}
	contentType := strings.TrimSpace(f.ContentType)
	if contentType == "" {
		contentType = http.DetectContentType(f.Data)
	}

	url := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
	s.log.Debug("file uploaded",
		zap.String("name", f.Name),
		zap.String("content_type", contentType),
		zap.Int("size", len(f.Data)))
	return FileResult{FileURL: url}, nil
}

// SendEmail validates the recipient and logs the message.
func (s *Service) SendEmail(ctx context.Context, e Email) (EmailResult, error) {
	if err := ctx.Err(); err != nil {
		return EmailResult{}, err
	}
	to, ok := sanitize.Email(e.To)
	if !ok {
		return EmailResult{}, fmt.Errorf("%w: recipient %q", types.ErrInvalidData, e.To)
	}

	s.log.Info("email queued",
		zap.String("to", to),
		zap.String("subject", sanitize.Text(e.Subject).(string)),
		zap.Int("body_length", len(e.Body)))
	return EmailResult{Success: true}, nil
}
