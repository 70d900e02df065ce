package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dchoinie/church-membership-app-sub003/pkg/configuration"
	"github.com/dchoinie/church-membership-app-sub003/pkg/csvimport"
)

// ReadImportUpload pulls the upload bytes out of the request, preferring a
// multipart "file" field and falling back to the raw body. It writes the
// error response itself, so callers just bail out on !ok.
func ReadImportUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	conf := configuration.Use()
	r.Body = http.MaxBytesReader(w, r.Body, conf.MaxUploadSize)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(conf.MaxUploadMemory); err != nil {
			writeUploadError(w, err)
			return nil, false
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			_ = WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "file field is required"})
			return nil, false
		}
		defer func() {
			_ = file.Close()
		}()

		data, err := io.ReadAll(file)
		if err != nil {
			writeUploadError(w, err)
			return nil, false
		}
		return data, true
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeUploadError(w, err)
		return nil, false
	}
	return data, true
}

func writeUploadError(w http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		_ = WriteJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file is too large"})
		return
	}
	_ = WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read upload"})
}

// WriteImportError keeps the legacy import contract: structural failures
// are a 400 with {"error": msg}, anything else is a 500.
func WriteImportError(w http.ResponseWriter, err error) {
	var structural *csvimport.StructuralError
	if errors.As(err, &structural) {
		_ = WriteJSON(w, http.StatusBadRequest, map[string]string{"error": structural.Message})
		return
	}
	_ = WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "import failed"})
}
