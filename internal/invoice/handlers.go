package invoice

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/dc-invoice/internal/challan"
	"github.com/zombor/dc-invoice/internal/scanning"
)

// maxUploadSize bounds multipart uploads; phone photos can be large
const maxUploadSize = int64(50 << 20) // 50MB

// maxJSONBodySize bounds the text and export request bodies
const maxJSONBodySize = int64(1 << 20) // 1MB

// noItemsWarning is returned alongside an invoice without line items
const noItemsWarning = "No line items found. Make sure the DC lists weight and rate on the same line."

// overflowMessage is returned when a recognized number is too large to price
const overflowMessage = "The DC contains numbers too large to compute an invoice. Check the weight and rate values."

// invoiceResponse is the JSON body returned for a processed challan
type invoiceResponse struct {
	Invoice *challan.Invoice `json:"invoice"`
	Warning string           `json:"warning,omitempty"`
}

type textRequest struct {
	Units []string `json:"units"`
}

type exportRequest struct {
	DCNumber string             `json:"dc_number"`
	Items    []challan.LineItem `json:"items"`
}

// writeJSON encodes v with the given status. The body is encoded before the
// status is written so an encoding failure can still be reported.
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
		code = http.StatusInternalServerError
		buf.Reset()
		buf.WriteString(`{"error":"Internal server error"}` + "\n")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Error writing response", "error", err)
	}
}

// jsonError writes an error response as {"error": message}
func jsonError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{
		"error": message,
	})
}

func writeInvoice(w http.ResponseWriter, inv *challan.Invoice) {
	if !finiteInvoice(inv) {
		slog.Warn("Invoice has non-finite amounts", "invoice_id", inv.ID, "subtotal", inv.Subtotal)
		jsonError(w, overflowMessage, http.StatusUnprocessableEntity)
		return
	}

	resp := invoiceResponse{Invoice: inv}
	if inv.Empty() {
		resp.Warning = noItemsWarning
	}
	writeJSON(w, http.StatusOK, resp)
}

// finiteInvoice reports whether every amount on the invoice can be encoded
func finiteInvoice(inv *challan.Invoice) bool {
	values := []float64{inv.Subtotal, inv.Tax, inv.Total}
	for _, item := range inv.Items {
		values = append(values, item.WeightKg, item.Rate, item.Amount)
	}
	for _, v := range values {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}

// handleHealth reports the engine in use
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"engine":  s.service.EngineName(),
		"version": s.version,
	})
}

// handleUploadChallan scans an uploaded challan image and returns the invoice
func (s *Server) handleUploadChallan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			errorMsg = "No file was selected. Please choose a DC image to upload."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFromFilename(header.Filename)
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	inv, err := s.service.ProcessChallan(r.Context(), header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error processing challan", "filename", header.Filename, "error", err)
		code := http.StatusBadGateway
		if errors.Is(err, scanning.ErrUnsupportedImage) {
			code = http.StatusBadRequest
		}
		jsonError(w, err.Error(), code)
		return
	}

	writeInvoice(w, inv)
}

// handleTextInvoice builds an invoice from text units supplied by the client
func (s *Server) handleTextInvoice(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, decodeErrorMessage(err), http.StatusBadRequest)
		return
	}

	writeInvoice(w, s.service.ProcessText(req.Units))
}

// handleExport returns the (possibly edited) items as a CSV or XLSX download
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, decodeErrorMessage(err), http.StatusBadRequest)
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	var buf bytes.Buffer
	if err := s.service.Export(&buf, format, req.DCNumber, req.Items); err != nil {
		if errors.Is(err, ErrUnknownFormat) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Error exporting invoice", "format", format, "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if format == FormatXLSX {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="invoice.xlsx"`)
	} else {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="invoice.csv"`)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Error writing export", "error", err)
	}
}

// decodeErrorMessage maps a JSON body decode error to a client message
func decodeErrorMessage(err error) string {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return "Request body is too large. Maximum size is 1MB."
	}
	return "Invalid request body"
}

// contentTypeFromFilename guesses the MIME type from the file extension
func contentTypeFromFilename(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}
