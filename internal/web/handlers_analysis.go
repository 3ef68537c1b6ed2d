package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/codefionn/mealcalc/internal/consts"
	"github.com/codefionn/mealcalc/internal/nutrition"
	"github.com/julienschmidt/httprouter"
)

type analyzeTextRequest struct {
	Text string `json:"text"`
}

type analyzePhotoRequest struct {
	Image string `json:"image"` // data URL
}

func (s *Server) handleAnalyzeText(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req analyzeTextRequest
	if err := decodeJSON(w, r, consts.MaxJSONBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.AnalysisTimeout)
	defer cancel()

	result, err := s.analyzer.AnalyzeText(ctx, req.Text)
	s.writeAnalysis(w, result, err)
}

// handleAnalyzePhoto accepts a multipart "photo" file or a JSON body with a
// data URL in "image".
func (s *Server) handleAnalyzePhoto(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var (
		data     []byte
		mimeType string
		err      error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		data, mimeType, err = readMultipartPhoto(w, r)
	} else {
		var req analyzePhotoRequest
		// base64 grows the payload by a third
		if err = decodeJSON(w, r, consts.MaxPhotoBytes*4/3+consts.MaxJSONBodyBytes, &req); err == nil {
			data, mimeType, err = DecodeDataURL(req.Image)
		}
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.AnalysisTimeout)
	defer cancel()

	result, err := s.analyzer.AnalyzePhoto(ctx, data, mimeType)
	s.writeAnalysis(w, result, err)
}

func readMultipartPhoto(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, consts.MaxPhotoBytes+consts.MaxJSONBodyBytes)
	file, header, err := r.FormFile("photo")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", errors.New("photo is too large")
		}
		return nil, "", errors.New(`multipart field "photo" is required`)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, consts.MaxPhotoBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > consts.MaxPhotoBytes {
		return nil, "", errors.New("photo is too large")
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "application/octet-stream" {
		mimeType = ""
	}
	return data, mimeType, nil
}

func (s *Server) writeAnalysis(w http.ResponseWriter, result *nutrition.AnalysisResult, err error) {
	if err != nil {
		if errors.Is(err, nutrition.ErrEmptyInput) {
			writeError(w, http.StatusBadRequest, "nothing to analyze")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, result)
}
