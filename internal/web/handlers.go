package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ergydev/billed/internal/bill"
	"github.com/ergydev/billed/internal/flow"
	"github.com/ergydev/billed/internal/session"
	"github.com/ergydev/billed/internal/store"
)

// maxFormSize bounds receipt uploads (high-resolution phone photos)
const maxFormSize = int64(50 << 20)

// maxBillSize bounds the JSON body of a submitted form
const maxBillSize = int64(1 << 20)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// writeFailure maps a classified store failure to a response
func writeFailure(w http.ResponseWriter, err error) {
	var failure *bill.Failure
	if !errors.As(err, &failure) {
		if errors.Is(err, session.ErrNoUser) {
			writeError(w, http.StatusUnauthorized, "Aucun utilisateur connecté")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	code := http.StatusBadGateway
	switch failure.Kind {
	case bill.KindNotFound:
		code = http.StatusNotFound
	case bill.KindServerError:
		code = http.StatusInternalServerError
	}
	writeJSON(w, code, map[string]string{
		"error": failure.Message,
		"kind":  string(failure.Kind),
		"op":    string(failure.Op),
	})
}

// handleListBills returns the employee's bills, newest first
func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	entries, err := s.bills.Fetch(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleNewBill answers the "new bill" button with the form route
func (s *Server) handleNewBill(w http.ResponseWriter, r *http.Request) {
	s.bills.NewBill()
	writeJSON(w, http.StatusOK, map[string]string{"redirect": s.nav.take()})
}

// handleReceipt returns the receipt preview of a bill
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	receipt, err := s.bills.Receipt(r.Context(), id)
	if errors.Is(err, flow.ErrBillNotFound) {
		writeError(w, http.StatusNotFound, "Bill not found")
		return
	}
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// handleSelectFile receives the receipt chosen on the new bill form
func (s *Server) handleSelectFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		writeError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file was selected. Please choose a file to upload.")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeFor(header.Filename)
	}

	sel := s.form.SelectFile(store.File{
		Name:        header.Filename,
		ContentType: strings.ToLower(strings.TrimSpace(contentType)),
		Data:        data,
	})
	code := http.StatusOK
	if !sel.Accepted {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, sel)
}

// handleSubmit submits the new bill form
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBillSize)
	var form flow.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.form.Submit(r.Context(), form); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"redirect": s.nav.take()})
}

// handleFile serves a receipt kept by the local store
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	data, err := s.files.File(name)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", contentTypeFor(name))
	w.Write(data)
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
