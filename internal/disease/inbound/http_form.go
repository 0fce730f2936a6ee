package inbound

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/shandysiswandi/epimap/internal/disease/usecase"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgerror"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgrouter"
)

const maxFormMemory = 32 << 20

var fileFields = []string{"file", "csv_file"}

type uploadForm struct {
	file     io.Reader
	filename string
	values   func(key string) string
	cleanup  func()
}

func (f uploadForm) value(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(f.values(key)); v != "" {
			return v
		}
	}
	return ""
}

func (f uploadForm) ingestInput() usecase.IngestInput {
	return usecase.IngestInput{
		File:     f.file,
		Filename: f.filename,
		Dataset:  f.value("dataset_name", "dataset"),
		Overrides: usecase.ColumnOverrides{
			Country: f.value("country_col"),
			Date:    f.value("date_col"),
			Cases:   f.value("cases_col"),
			Deaths:  f.value("deaths_col"),
		},
	}
}

var errUploadTooLarge = pkgerror.NewBusiness("upload exceeds the size limit", pkgerror.CodeTooLarge)

// uploadError reports a body cut off by the size limit as 413 instead of the
// read failure it surfaced as.
func uploadError(err error) error {
	if pkgrouter.IsBodyTooLarge(err) {
		return errUploadTooLarge
	}
	return err
}

// readUploadForm accepts a multipart form with the file in a "file" or
// "csv_file" part, or a raw body with the form values in the query string.
// Large multipart files are spooled to disk by the standard library.
func readUploadForm(r *http.Request) (uploadForm, error) {
	noop := func() {}
	query := r.URL.Query()

	contentType := r.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if !strings.EqualFold(mediaType, "multipart/form-data") {
		if r.Body == nil || r.Body == http.NoBody {
			return uploadForm{}, pkgerror.NewInvalidInput(errors.New("empty request body"))
		}
		return uploadForm{
			file:     r.Body,
			filename: query.Get("filename"),
			values:   query.Get,
			cleanup:  noop,
		}, nil
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		if pkgrouter.IsBodyTooLarge(err) {
			return uploadForm{}, errUploadTooLarge
		}
		return uploadForm{}, pkgerror.NewInvalidFormat()
	}
	form := r.MultipartForm
	cleanup := func() { _ = form.RemoveAll() }

	values := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return v[0]
		}
		return query.Get(key)
	}

	for _, field := range fileFields {
		headers := form.File[field]
		if len(headers) == 0 {
			continue
		}
		file, err := headers[0].Open()
		if err != nil {
			cleanup()
			return uploadForm{}, pkgerror.NewServer(err)
		}
		return uploadForm{
			file:     file,
			filename: headers[0].Filename,
			values:   values,
			cleanup: func() {
				_ = file.Close()
				cleanup()
			},
		}, nil
	}

	cleanup()
	return uploadForm{}, pkgerror.NewInvalidInput(errors.New("file part is required"))
}
