package tuplekit

import (
	"fmt"
	"net/http"
	"strconv"
)

// Middleware provides HTTP middleware for relationship-based permission
// checking. It consumes the Authorizer interface, so it works over a Service
// or a MemoryStore-backed checker alike.
type Middleware struct {
	authorizer   Authorizer
	getUser      func(*http.Request) string
	errorHandler func(http.ResponseWriter, *http.Request, error)
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance.
//
// Example:
//
//	mw := tuplekit.NewMiddleware(service,
//	    tuplekit.WithUserExtractor(func(r *http.Request) string {
//	        return "user:" + r.Header.Get("X-User-ID")
//	    }),
//	)
func NewMiddleware(authorizer Authorizer, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		authorizer:   authorizer,
		getUser:      defaultGetUser,
		errorHandler: defaultErrorHandler,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// WithUserExtractor sets a custom function to extract the user reference from
// a request.
func WithUserExtractor(fn func(*http.Request) string) MiddlewareOption {
	return func(m *Middleware) {
		m.getUser = fn
	}
}

// WithMiddlewareErrorHandler sets a custom error handler for middleware.
func WithMiddlewareErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

func defaultGetUser(r *http.Request) string {
	return GetUser(r.Context())
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	if IsDenied(err) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if IsInvalidRef(err) || IsTypeNotFound(err) || IsRelationNotFound(err) {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// ObjectExtractor extracts the target object reference from an HTTP request.
type ObjectExtractor func(*http.Request) (ObjectRef, error)

// ObjectFromParam creates an ObjectExtractor that reads the object id from
// URL parameters. Compatible with chi, gorilla/mux, and standard library
// patterns.
//
// Example:
//
//	// For route /documents/{docID}
//	mw.RequireRelation("viewer", tuplekit.ObjectFromParam("document", "docID"))
func ObjectFromParam(objectType, paramName string) ObjectExtractor {
	return func(r *http.Request) (ObjectRef, error) {
		objectID := r.PathValue(paramName)
		if objectID == "" {
			// Try context (set by router middleware)
			if v := r.Context().Value(paramName); v != nil {
				if s, ok := v.(string); ok {
					objectID = s
				}
			}
		}
		if objectID == "" {
			return ObjectRef{}, NewError(ErrInvalidRef, "object id not found in request").
				WithObject(objectType + ":")
		}
		return ObjectRef{Type: objectType, ID: objectID}, nil
	}
}

// ObjectFromQuery creates an ObjectExtractor that reads the object id from
// query parameters.
//
// Example:
//
//	// For route /api/files?document_id=readme
//	mw.RequireRelation("viewer", tuplekit.ObjectFromQuery("document", "document_id"))
func ObjectFromQuery(objectType, queryParam string) ObjectExtractor {
	return func(r *http.Request) (ObjectRef, error) {
		objectID := r.URL.Query().Get(queryParam)
		if objectID == "" {
			return ObjectRef{}, NewError(ErrInvalidRef, "object id not found in query").
				WithObject(objectType + ":")
		}
		return ObjectRef{Type: objectType, ID: objectID}, nil
	}
}

// ObjectFromHeader creates an ObjectExtractor that reads the object id from a
// header.
//
// Example:
//
//	// For header X-Workspace-ID: acme
//	mw.RequireRelation("member", tuplekit.ObjectFromHeader("workspace", "X-Workspace-ID"))
func ObjectFromHeader(objectType, headerName string) ObjectExtractor {
	return func(r *http.Request) (ObjectRef, error) {
		objectID := r.Header.Get(headerName)
		if objectID == "" {
			return ObjectRef{}, NewError(ErrInvalidRef, "object id not found in header").
				WithObject(objectType + ":")
		}
		return ObjectRef{Type: objectType, ID: objectID}, nil
	}
}

// StaticObject creates an ObjectExtractor that always returns the same
// object. Useful for global resources.
//
// Example:
//
//	mw.RequireRelation("admin", tuplekit.StaticObject("system", "global"))
func StaticObject(objectType, objectID string) ObjectExtractor {
	return func(r *http.Request) (ObjectRef, error) {
		return ObjectRef{Type: objectType, ID: objectID}, nil
	}
}

// RequireRelation creates middleware that requires the requesting user to
// hold a relation on the extracted object. The request's consistency token,
// if one is set via WithConsistency or the X-Consistency-Token header, is
// honored.
//
// Example:
//
//	router.With(mw.RequireRelation("editor", tuplekit.ObjectFromParam("document", "docID"))).
//	    Put("/documents/{docID}", updateDocumentHandler)
func (m *Middleware) RequireRelation(relation string, extractor ObjectExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			user := m.getUser(r)
			if user == "" {
				m.errorHandler(w, r, NewError(ErrDenied, "no user in request"))
				return
			}

			object, err := extractor(r)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			result, err := m.authorizer.Check(ctx, CheckRequest{
				User:     user,
				Relation: relation,
				Object:   object.String(),
				MinTxid:  consistencyFromRequest(r),
			})
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}
			if !result.Allowed {
				m.errorHandler(w, r, NewError(ErrDenied, "missing required relation").
					WithUser(user).
					WithRelation(relation).
					WithObject(object.String()))
				return
			}

			// Expose the authorizer to handlers for follow-up checks
			ctx = WithAuthorizer(ctx, m.authorizer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAnyRelation creates middleware that requires any of the specified
// relations on the extracted object. The relations are evaluated as one
// batch.
//
// Example:
//
//	router.With(mw.RequireAnyRelation([]string{"owner", "editor"}, extractor)).
//	    Delete("/documents/{docID}", deleteDocumentHandler)
func (m *Middleware) RequireAnyRelation(relations []string, extractor ObjectExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			user := m.getUser(r)
			if user == "" {
				m.errorHandler(w, r, NewError(ErrDenied, "no user in request"))
				return
			}

			object, err := extractor(r)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			reqs := make([]CheckRequest, len(relations))
			for i, relation := range relations {
				reqs[i] = CheckRequest{
					User:     user,
					Relation: relation,
					Object:   object.String(),
					MinTxid:  consistencyFromRequest(r),
				}
			}
			results, err := m.authorizer.BatchCheck(ctx, reqs)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			allowed := false
			for _, res := range results {
				if res.Allowed {
					allowed = true
					break
				}
			}
			if !allowed {
				m.errorHandler(w, r, NewError(ErrDenied,
					fmt.Sprintf("missing all of relations %v", relations)).
					WithUser(user).
					WithObject(object.String()))
				return
			}

			ctx = WithAuthorizer(ctx, m.authorizer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoadAuthorizer creates middleware that puts the Authorizer into the request
// context without enforcing anything. Use this when permission checks happen
// in the handler.
//
// Example:
//
//	router.With(mw.LoadAuthorizer()).Get("/dashboard", dashboardHandler)
//
//	func dashboardHandler(w http.ResponseWriter, r *http.Request) {
//	    authz := tuplekit.FromContext(r.Context())
//	    result, _ := authz.Check(r.Context(), req)
//	    ...
//	}
func (m *Middleware) LoadAuthorizer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithAuthorizer(r.Context(), m.authorizer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InjectRequestScope creates middleware that extracts the user reference and
// consistency token from the request and adds them to the context for
// downstream checks.
//
// Example:
//
//	router.Use(mw.InjectRequestScope())
func (m *Middleware) InjectRequestScope() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if user := m.getUser(r); user != "" {
				ctx = WithUser(ctx, user)
			}
			if txid := consistencyFromRequest(r); txid > 0 {
				ctx = WithConsistency(ctx, txid)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// consistencyFromRequest resolves the consistency token: the context value
// wins, then the X-Consistency-Token header.
func consistencyFromRequest(r *http.Request) int64 {
	if txid := GetConsistency(r.Context()); txid > 0 {
		return txid
	}
	if raw := r.Header.Get("X-Consistency-Token"); raw != "" {
		if txid, err := strconv.ParseInt(raw, 10, 64); err == nil && txid > 0 {
			return txid
		}
	}
	return 0
}
