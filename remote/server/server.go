// Package server exposes an evaluator over HTTP. Terms and results travel as
// dag-json or dag-cbor, chosen by the request Content-Type.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/multiformats/go-multicodec"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ipfs/go-ipld-lambda/store"
	"github.com/ipfs/go-ipld-lambda/term"
)

const (
	MediaTypeDagJSON = "application/vnd.ipld.dag-json"
	MediaTypeDagCBOR = "application/vnd.ipld.dag-cbor"
	mediaTypeJSON    = "application/json"
)

const (
	EvalPath       = "/lambda/v0/eval"
	EvalStoredPath = "/lambda/v0/eval/{cid}"
	TermsPath      = "/lambda/v0/terms"
	TermPath       = "/lambda/v0/terms/{cid}"
)

// DefaultMaxBodySize bounds request bodies unless WithMaxBodySize says
// otherwise.
const DefaultMaxBodySize = 2 << 20

var logger = logging.Logger("lambda/server")

var errNoStore = errors.New("no term store configured")

// RequestIDHeader carries the identifier of a request. The server keeps the
// one sent by the client and makes one up otherwise.
const RequestIDHeader = "X-Lambda-Request-Id"

type requestIDKey struct{}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, httpReq *http.Request) {
		id := httpReq.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(httpReq.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, httpReq.WithContext(ctx))
	})
}

// RequestID returns the identifier of the request ctx belongs to.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Evaluator is what the server needs from *lambda.Evaluator.
type Evaluator interface {
	EvaluateTerm(ctx context.Context, t term.Term) (any, error)
}

type serverOption func(s *server)

// WithStore enables the routes that store and evaluate terms by CID.
func WithStore(st *store.Store) serverOption {
	return func(s *server) {
		s.store = st
	}
}

func WithMaxBodySize(n int64) serverOption {
	return func(s *server) {
		s.maxBodySize = n
	}
}

func Handler(ev Evaluator, opts ...serverOption) http.Handler {
	server := &server{
		ev:          ev,
		maxBodySize: DefaultMaxBodySize,
		evalMetric:  newEvalMetric(),
	}

	for _, opt := range opts {
		opt(server)
	}

	r := mux.NewRouter()
	r.Use(withRequestID)
	r.HandleFunc(EvalPath, server.eval).Methods(http.MethodPost)
	r.HandleFunc(EvalStoredPath, server.evalStored).Methods(http.MethodPost)
	r.HandleFunc(TermsPath, server.put).Methods(http.MethodPut)
	r.HandleFunc(TermsPath, server.list).Methods(http.MethodGet)
	r.HandleFunc(TermPath, server.get).Methods(http.MethodGet)

	return r
}

type server struct {
	ev          Evaluator
	store       *store.Store
	maxBodySize int64
	evalMetric  evalMetric
}

func (s *server) eval(w http.ResponseWriter, httpReq *http.Request) {
	ctx, span := spanTrace(httpReq.Context(), "Eval")
	defer span.End()

	c, err := requestCodec(httpReq)
	if err != nil {
		writeErr(w, "Eval", http.StatusUnsupportedMediaType, err)
		return
	}
	t, err := s.readTerm(w, httpReq, c)
	if err != nil {
		writeReadErr(w, "Eval", err)
		return
	}
	s.evaluate(ctx, w, "Eval", t, c)
}

func (s *server) evalStored(w http.ResponseWriter, httpReq *http.Request) {
	k, ok := s.cidVar(w, httpReq, "EvalStored")
	if !ok {
		return
	}
	ctx, span := spanTrace(httpReq.Context(), "EvalStored", trace.WithAttributes(attribute.String("cid", k.String())))
	defer span.End()

	c, err := responseCodec(httpReq)
	if err != nil {
		writeErr(w, "EvalStored", http.StatusNotAcceptable, err)
		return
	}
	t, err := s.store.Get(ctx, k)
	if err != nil {
		writeErr(w, "EvalStored", storeStatus(err), err)
		return
	}
	s.evaluate(ctx, w, "EvalStored", t, c)
}

func (s *server) put(w http.ResponseWriter, httpReq *http.Request) {
	ctx, span := spanTrace(httpReq.Context(), "Put")
	defer span.End()

	if s.store == nil {
		writeErr(w, "Put", http.StatusNotImplemented, errNoStore)
		return
	}
	c, err := requestCodec(httpReq)
	if err != nil {
		writeErr(w, "Put", http.StatusUnsupportedMediaType, err)
		return
	}
	t, err := s.readTerm(w, httpReq, c)
	if err != nil {
		writeReadErr(w, "Put", err)
		return
	}
	k, err := s.store.Put(ctx, t)
	if err != nil {
		writeErr(w, "Put", http.StatusInternalServerError, fmt.Errorf("store error: %w", err))
		return
	}
	span.SetAttributes(attribute.String("cid", k.String()))
	writeResult(w, "Put", c, http.StatusCreated, map[string]any{"Cid": k})
}

func (s *server) get(w http.ResponseWriter, httpReq *http.Request) {
	k, ok := s.cidVar(w, httpReq, "Get")
	if !ok {
		return
	}
	ctx, span := spanTrace(httpReq.Context(), "Get", trace.WithAttributes(attribute.String("cid", k.String())))
	defer span.End()

	c, err := responseCodec(httpReq)
	if err != nil {
		writeErr(w, "Get", http.StatusNotAcceptable, err)
		return
	}
	t, err := s.store.Get(ctx, k)
	if err != nil {
		writeErr(w, "Get", storeStatus(err), err)
		return
	}
	b, err := term.Marshal(t, c)
	if err != nil {
		writeErr(w, "Get", http.StatusInternalServerError, fmt.Errorf("marshaling term: %w", err))
		return
	}
	writeBytes(w, "Get", c, http.StatusOK, b)
}

func (s *server) list(w http.ResponseWriter, httpReq *http.Request) {
	ctx, span := spanTrace(httpReq.Context(), "List")
	defer span.End()

	if s.store == nil {
		writeErr(w, "List", http.StatusNotImplemented, errNoStore)
		return
	}
	c, err := responseCodec(httpReq)
	if err != nil {
		writeErr(w, "List", http.StatusNotAcceptable, err)
		return
	}
	cids, err := s.store.Cids(ctx)
	if err != nil {
		writeErr(w, "List", http.StatusInternalServerError, fmt.Errorf("store error: %w", err))
		return
	}
	links := make([]any, len(cids))
	for i, k := range cids {
		links[i] = k
	}
	writeResult(w, "List", c, http.StatusOK, map[string]any{"Cids": links})
}

func (s *server) evaluate(ctx context.Context, w http.ResponseWriter, method string, t term.Term, c multicodec.Code) {
	begin := time.Now()
	v, err := s.ev.EvaluateTerm(ctx, t)
	if err == nil {
		var b []byte
		b, err = term.MarshalValue(v, c)
		if err == nil {
			s.evalMetric.observe(nil, begin)
			logger.Desugar().Debug("evaluated term",
				zap.String("method", method),
				zap.String("request", RequestID(ctx)),
				zap.Duration("took", time.Since(begin)),
				zap.Int("size", len(b)))
			writeBytes(w, method, c, http.StatusOK, b)
			return
		}
		err = fmt.Errorf("result cannot be encoded: %w", err)
	}
	s.evalMetric.observe(err, begin)
	writeErr(w, method, http.StatusUnprocessableEntity, err)
}

func (s *server) readTerm(w http.ResponseWriter, httpReq *http.Request, c multicodec.Code) (term.Term, error) {
	body := http.MaxBytesReader(w, httpReq.Body, s.maxBodySize)
	b, err := io.ReadAll(body)
	_ = body.Close()
	if err != nil {
		return nil, err
	}
	return term.Unmarshal(b, c)
}

// writeReadErr answers 413 for bodies over the size bound and 400 for
// anything that is not a term.
func writeReadErr(w http.ResponseWriter, method string, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeErr(w, method, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit))
		return
	}
	writeErr(w, method, http.StatusBadRequest, fmt.Errorf("invalid term: %w", err))
}

func (s *server) cidVar(w http.ResponseWriter, httpReq *http.Request, method string) (cid.Cid, bool) {
	if s.store == nil {
		writeErr(w, method, http.StatusNotImplemented, errNoStore)
		return cid.Undef, false
	}
	k, err := cid.Decode(mux.Vars(httpReq)["cid"])
	if err != nil {
		writeErr(w, method, http.StatusBadRequest, fmt.Errorf("unable to parse CID: %w", err))
		return cid.Undef, false
	}
	return k, true
}

func storeStatus(err error) int {
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// requestCodec picks the codec of the request body. A missing Content-Type
// means dag-json.
func requestCodec(httpReq *http.Request) (multicodec.Code, error) {
	ct := httpReq.Header.Get("Content-Type")
	if ct == "" {
		return multicodec.DagJson, nil
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return 0, fmt.Errorf("unable to parse Content-Type header: %w", err)
	}
	return codecFor(mediaType)
}

// responseCodec picks the first supported codec in the Accept header, falling
// back to dag-json.
func responseCodec(httpReq *http.Request) (multicodec.Code, error) {
	accepts := httpReq.Header.Values("Accept")
	if len(accepts) == 0 {
		return multicodec.DagJson, nil
	}
	for _, accept := range accepts {
		mediaType, _, err := mime.ParseMediaType(accept)
		if err != nil {
			return 0, fmt.Errorf("unable to parse Accept header: %w", err)
		}
		if mediaType == "*/*" {
			return multicodec.DagJson, nil
		}
		if c, err := codecFor(mediaType); err == nil {
			return c, nil
		}
	}
	return 0, errors.New("no supported content types")
}

func codecFor(mediaType string) (multicodec.Code, error) {
	switch mediaType {
	case MediaTypeDagJSON, mediaTypeJSON:
		return multicodec.DagJson, nil
	case MediaTypeDagCBOR:
		return multicodec.DagCbor, nil
	default:
		return 0, fmt.Errorf("%w: %s", term.ErrUnsupportedCodec, mediaType)
	}
}

// MediaType returns the media type terms encoded with c are sent as.
func MediaType(c multicodec.Code) string {
	if c == multicodec.DagCbor {
		return MediaTypeDagCBOR
	}
	return MediaTypeDagJSON
}

func writeResult(w http.ResponseWriter, method string, c multicodec.Code, statusCode int, val any) {
	// keep the marshaling separate from the writing, so encoding bugs surface as 500
	b, err := term.MarshalValue(val, c)
	if err != nil {
		writeErr(w, method, http.StatusInternalServerError, fmt.Errorf("marshaling response: %w", err))
		return
	}
	writeBytes(w, method, c, statusCode, b)
}

func writeBytes(w http.ResponseWriter, method string, c multicodec.Code, statusCode int, b []byte) {
	w.Header().Set("Content-Type", MediaType(c))
	w.WriteHeader(statusCode)
	if _, err := w.Write(b); err != nil {
		logErr(method, "writing response body", err)
	}
}

func writeErr(w http.ResponseWriter, method string, statusCode int, cause error) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	causeStr := cause.Error()
	if len(causeStr) > 1024 {
		causeStr = causeStr[:1024]
	}
	_, err := w.Write([]byte(causeStr))
	if err != nil {
		logErr(method, "error writing error cause", err)
		return
	}
}

func logErr(method, msg string, err error) {
	logger.Infow(msg, "Method", method, "Error", err)
}
