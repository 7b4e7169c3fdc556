package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const maxRequestBodyBytes int64 = 64 << 10

// Response is the JSON body returned for every settled delivery.
type Response struct {
	Processed        bool   `json:"processed"`
	Message          string `json:"message"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
}

// Handler exposes the processor at a single POST endpoint. Rejected
// deliveries get a 400 so the provider retries after the operator fixes
// the secret or clock skew; everything settled gets a 200 so redeliveries
// of handled events stop.
type Handler struct {
	Processor *Processor
	Now       func() time.Time
}

func NewHandler(processor *Processor) *Handler {
	return &Handler{
		Processor: processor,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Processor == nil {
		http.Error(w, "webhook endpoint is not configured", http.StatusInternalServerError)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	startedAt := h.now()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		writeResponse(w, http.StatusBadRequest, Response{
			Processed:        false,
			Message:          MessageBadPayload,
			ProcessingTimeMs: h.elapsedMs(startedAt),
		})
		return
	}

	headers := make(map[string]string, len(r.Header))
	for key := range r.Header {
		headers[key] = r.Header.Get(key)
	}

	receipt, processErr := h.Processor.Process(r.Context(), headers, body)
	status := http.StatusOK
	switch {
	case receipt.Outcome.Rejected():
		status = http.StatusBadRequest
	case processErr != nil:
		status = errorStatus(processErr)
		if receipt.Message == "" {
			receipt.Message = "Internal error"
		}
	}

	writeResponse(w, status, Response{
		Processed:        receipt.Processed,
		Message:          receipt.Message,
		ProcessingTimeMs: h.elapsedMs(startedAt),
	})
}

func errorStatus(err error) int {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Code > 0 {
		return richErr.Code
	}
	return http.StatusInternalServerError
}

func writeResponse(w http.ResponseWriter, status int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

func (h *Handler) now() time.Time {
	if h != nil && h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h *Handler) elapsedMs(startedAt time.Time) int64 {
	return h.now().Sub(startedAt).Milliseconds()
}
