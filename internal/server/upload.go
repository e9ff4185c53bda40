package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"resumeforge/internal/errors"
	"resumeforge/internal/extract"
	"resumeforge/internal/types"
)

// multipartMemory is kept in memory while parsing; larger parts spill to
// temp files removed by form.RemoveAll.
const multipartMemory = 8 << 20

const (
	msgNoFile      = "No resume file uploaded"
	msgInvalidType = "Invalid file type. Only DOCX and PDF files are accepted."
)

// parseMultipart caps the body and parses the form. Callers must
// RemoveAll the returned form.
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) (*multipart.Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return nil, s.fileTooLarge(err)
		}
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "Expected a multipart/form-data request", err)
	}
	return r.MultipartForm, nil
}

// resumeHeader checks presence, size and media type of the "resume" part
// without reading it.
func (s *Server) resumeHeader(form *multipart.Form) (*multipart.FileHeader, string, error) {
	files := form.File["resume"]
	if len(files) == 0 {
		return nil, "", errors.NewValidationError(errors.ErrCodeInvalidRequest, msgNoFile, nil)
	}
	header := files[0]
	if header.Size > s.MaxUploadSize {
		return nil, "", s.fileTooLarge(nil)
	}

	mediaType := extract.NormalizeMediaType(header.Header.Get("Content-Type"), header.Filename)
	if !extract.IsAllowed(mediaType) {
		return nil, "", errors.NewValidationError(errors.ErrCodeUnsupportedFormat, msgInvalidType, nil).
			WithContext("media_type", mediaType)
	}
	return header, mediaType, nil
}

func (s *Server) readResume(header *multipart.FileHeader, mediaType string) (types.UploadedDocument, error) {
	f, err := header.Open()
	if err != nil {
		return types.UploadedDocument{}, errors.NewIOError(errors.ErrCodeFileNotReadable, "Failed to read uploaded file", err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, s.MaxUploadSize+1))
	if err != nil {
		return types.UploadedDocument{}, errors.NewIOError(errors.ErrCodeFileNotReadable, "Failed to read uploaded file", err)
	}
	if int64(len(data)) > s.MaxUploadSize {
		return types.UploadedDocument{}, s.fileTooLarge(nil)
	}

	return types.UploadedDocument{
		Data:      data,
		MediaType: mediaType,
		Size:      int64(len(data)),
		Filename:  header.Filename,
	}, nil
}

// jobFromForm reads the job context from the jobDetails JSON field, or from
// individual fields when it is absent.
func jobFromForm(form *multipart.Form) (types.JobContext, error) {
	var job types.JobContext
	if raw := formValue(form, "jobDetails"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			return types.JobContext{}, errors.NewValidationError(errors.ErrCodeInvalidRequest, "Job details must be valid JSON", err)
		}
	} else {
		job = types.JobContext{
			CompanyName:    formValue(form, "companyName"),
			RoleTitle:      formValue(form, "roleTitle"),
			JobDescription: formValue(form, "jobDescription"),
		}
	}

	job = job.Normalize()
	if err := job.Validate(); err != nil {
		return types.JobContext{}, err
	}
	return job, nil
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

func (s *Server) fileTooLarge(cause error) error {
	return errors.NewValidationError(errors.ErrCodeFileTooLarge,
		fmt.Sprintf("File size too large. Maximum size is %s.", formatMegabytes(s.MaxUploadSize)), cause)
}

func formatMegabytes(n int64) string {
	if n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	return fmt.Sprintf("%.1fMB", float64(n)/(1<<20))
}
