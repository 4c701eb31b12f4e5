package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"csvclean/internal/dataset"
	"csvclean/internal/datasource"
)

// upload is a decoded CSV file from a multipart request.
type upload struct {
	Filename string
	Data     *dataset.Dataset
}

// readUpload decodes the multipart "file" field. Failures are 400s with the
// same details for every upload endpoint.
func (s *Server) readUpload(c echo.Context) (*upload, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "missing filename").SetInternal(err)
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form").SetInternal(err)
	}

	name := strings.TrimSpace(fh.Filename)
	if name == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "missing filename")
	}
	if !datasource.IsCSVName(name) {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "only .csv files are supported")
	}
	if fh.Size > s.cfg.MaxUploadBytes {
		return nil, echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxUploadBytes))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	ds, err := dataset.ReadCSV(raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("could not parse csv: %v", err)).SetInternal(err)
	}
	if ds.Width() == 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "no columns found in csv")
	}
	return &upload{Filename: name, Data: ds}, nil
}
