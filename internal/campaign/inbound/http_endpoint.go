package inbound

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkgerror"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkgrouter"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkguid"
)

const (
	defaultUploadName   = "upload.csv"
	defaultMaxUpload    = 10 << 20
	maxJSONBodyBytes    = 1 << 20
	defaultPageSize     = 10
	maxPageSize         = 100
	uploadFormFieldName = "file"
)

type HTTPEndpoint struct {
	uc             uc
	maxUploadBytes int64
}

type upload struct {
	meta entity.FileMeta
	data []byte
}

// UploadFiles accepts either a multipart form with one or more "file" parts
// or a raw CSV body named by ?name=. Every file is acknowledged before it is
// parsed.
func (h *HTTPEndpoint) UploadFiles(ctx context.Context, r *http.Request) (any, error) {
	uploads, err := h.readUploads(r)
	if err != nil {
		return nil, err
	}

	files := make([]FileResponse, 0, len(uploads))
	for _, up := range uploads {
		rec, err := h.uc.Upload(ctx, up.meta, bytes.NewReader(up.data))
		if err != nil {
			return nil, err
		}
		files = append(files, NewFileResponse(rec))
	}

	return UploadResponse{Files: files}, nil
}

func (h *HTTPEndpoint) ListFiles(ctx context.Context, r *http.Request) (any, error) {
	records, err := h.uc.Files(ctx)
	if err != nil {
		return nil, err
	}

	files := make([]FileResponse, 0, len(records))
	for _, rec := range records {
		files = append(files, NewFileResponse(rec))
	}

	return FilesResponse{Files: files}, nil
}

func (h *HTTPEndpoint) RemoveFile(ctx context.Context, r *http.Request) (any, error) {
	id := pkgrouter.GetParam(ctx, "id")
	if !pkguid.ValidUUID(id) {
		return nil, pkgerror.NewInvalidInput(errors.New("invalid file id"))
	}

	if err := h.uc.RemoveFile(ctx, id); err != nil {
		return nil, err
	}
	return nil, nil
}

func (h *HTTPEndpoint) Rows(ctx context.Context, r *http.Request) (any, error) {
	query := r.URL.Query()
	page, pageSize, err := parsePagination(query.Get("page"), query.Get("page_size"))
	if err != nil {
		return nil, err
	}

	result, err := h.uc.Rows(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}

	rows := result.Rows
	if rows == nil {
		rows = []entity.Row{}
	}

	return RowsResponse{
		Rows:     rows,
		page:     result.Page,
		pageSize: result.PageSize,
		total:    result.Total,
	}, nil
}

func (h *HTTPEndpoint) Stats(ctx context.Context, r *http.Request) (any, error) {
	stats, err := h.uc.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return NewStatsResponse(stats), nil
}

func (h *HTTPEndpoint) Charts(ctx context.Context, r *http.Request) (any, error) {
	charts, err := h.uc.Charts(ctx)
	if err != nil {
		return nil, err
	}

	return ChartsResponse{
		SpendRevenue: NewChartPoints(charts.SpendRevenue),
		CPATrend:     NewChartPoints(charts.CPATrend),
	}, nil
}

func (h *HTTPEndpoint) RequestAudit(ctx context.Context, r *http.Request) (any, error) {
	job, err := h.uc.RequestAudit(ctx)
	if err != nil {
		return nil, err
	}
	return InsightAccepted{toInsightResponse(job)}, nil
}

func (h *HTTPEndpoint) RequestSearch(ctx context.Context, r *http.Request) (any, error) {
	var req SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}

	job, err := h.uc.RequestSearch(ctx, req.Query)
	if err != nil {
		return nil, err
	}
	return InsightAccepted{toInsightResponse(job)}, nil
}

func (h *HTTPEndpoint) RequestPrediction(ctx context.Context, r *http.Request) (any, error) {
	var req PredictRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}

	job, err := h.uc.RequestPrediction(ctx, req.target())
	if err != nil {
		return nil, err
	}
	return InsightAccepted{toInsightResponse(job)}, nil
}

func (h *HTTPEndpoint) Insight(ctx context.Context, r *http.Request) (any, error) {
	id, err := pkgrouter.GetParamInt64(ctx, "id")
	if err != nil || id <= 0 {
		return nil, pkgerror.NewInvalidInput(errors.New("invalid insight id"))
	}

	job, err := h.uc.Insight(ctx, id)
	if err != nil {
		return nil, err
	}
	return toInsightResponse(job), nil
}

func parsePagination(pageRaw, sizeRaw string) (int, int, error) {
	page := 1
	pageSize := defaultPageSize

	if pageRaw != "" {
		value, err := strconv.Atoi(pageRaw)
		if err != nil || value < 1 {
			return 0, 0, pkgerror.NewInvalidInput(errors.New("invalid page"))
		}
		page = value
	}

	if sizeRaw != "" {
		value, err := strconv.Atoi(sizeRaw)
		if err != nil || value < 1 {
			return 0, 0, pkgerror.NewInvalidInput(errors.New("invalid page_size"))
		}
		pageSize = min(value, maxPageSize)
	}

	return page, pageSize, nil
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return pkgerror.NewInvalidFormat()
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return pkgerror.NewInvalidFormat()
	}
	return nil
}

func (h *HTTPEndpoint) limit() int64 {
	if h.maxUploadBytes > 0 {
		return h.maxUploadBytes
	}
	return defaultMaxUpload
}

func (h *HTTPEndpoint) readUploads(r *http.Request) ([]upload, error) {
	if contentType := r.Header.Get("Content-Type"); contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil && strings.EqualFold(mediaType, "multipart/form-data") {
			return h.readMultipart(r)
		}
	}

	if r.Body == nil || r.Body == http.NoBody {
		return nil, pkgerror.NewInvalidInput(errors.New("empty request body"))
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = defaultUploadName
	}

	data, err := h.readBounded(r.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, pkgerror.NewInvalidInput(errors.New("empty request body"))
	}

	return []upload{{
		meta: entity.FileMeta{Name: name, Size: int64(len(data)), ContentType: r.Header.Get("Content-Type")},
		data: data,
	}}, nil
}

func (h *HTTPEndpoint) readMultipart(r *http.Request) ([]upload, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, pkgerror.NewInvalidFormat()
	}

	var uploads []upload
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, pkgerror.NewInvalidFormat()
		}

		up, ok, err := h.readPart(part)
		if err != nil {
			return nil, err
		}
		if ok {
			uploads = append(uploads, up)
		}
	}

	if len(uploads) == 0 {
		return nil, pkgerror.NewInvalidInput(errors.New("file part is required"))
	}
	return uploads, nil
}

func (h *HTTPEndpoint) readPart(part *multipart.Part) (upload, bool, error) {
	defer func() { _ = part.Close() }()

	if part.FormName() != uploadFormFieldName {
		return upload{}, false, nil
	}

	data, err := h.readBounded(part)
	if err != nil {
		return upload{}, false, err
	}

	name := part.FileName()
	if name == "" {
		name = defaultUploadName
	}

	return upload{
		meta: entity.FileMeta{Name: name, Size: int64(len(data)), ContentType: part.Header.Get("Content-Type")},
		data: data,
	}, true, nil
}

// readBounded reads at most one byte past the upload limit so the ingestor
// can still flag an oversized file, then discards the remainder.
func (h *HTTPEndpoint) readBounded(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, h.limit()+1))
	if err != nil {
		return nil, pkgerror.NewInvalidFormat()
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return nil, pkgerror.NewInvalidFormat()
	}
	return data, nil
}
