// Пакет routes — интерфейс HTTP-обработчиков sitecms и привязка
// параметров запроса к маршрутам chi по OpenAPI контракту.
package routes

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface — обработчики всех операций контракта.
type ServerInterface interface {
	// (GET /health/live)
	HealthLive(w http.ResponseWriter, r *http.Request)
	// (GET /health/ready)
	HealthReady(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	GetMetrics(w http.ResponseWriter, r *http.Request)

	// (POST /api/process-cloudinary)
	ProcessCloudinary(w http.ResponseWriter, r *http.Request)
	// (POST /api/video-writeback)
	VideoWriteback(w http.ResponseWriter, r *http.Request, params VideoWritebackParams)

	// (GET /api/v1/collections)
	ListCollections(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/collections/{collection})
	ListDocuments(w http.ResponseWriter, r *http.Request, collection CollectionSlug, params ListDocumentsParams)
	// (POST /api/v1/collections/{collection})
	CreateDocument(w http.ResponseWriter, r *http.Request, collection CollectionSlug)
	// (GET /api/v1/collections/{collection}/{id})
	GetDocument(w http.ResponseWriter, r *http.Request, collection CollectionSlug, id DocumentId)
	// (PATCH /api/v1/collections/{collection}/{id})
	UpdateDocument(w http.ResponseWriter, r *http.Request, collection CollectionSlug, id DocumentId)
	// (DELETE /api/v1/collections/{collection}/{id})
	DeleteDocument(w http.ResponseWriter, r *http.Request, collection CollectionSlug, id DocumentId)

	// (GET /api/v1/users)
	ListUsers(w http.ResponseWriter, r *http.Request, params ListUsersParams)
	// (PUT /api/v1/users/{subject})
	PutUser(w http.ResponseWriter, r *http.Request, subject Subject)
	// (DELETE /api/v1/users/{subject})
	DeleteUser(w http.ResponseWriter, r *http.Request, subject Subject)

	// (GET /api/v1/auth/me)
	GetAuthMe(w http.ResponseWriter, r *http.Request)
}

// ParamError — ошибка разбора параметра запроса.
type ParamError struct {
	ParamName string
	Err       error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("некорректный параметр %s: %v", e.ParamName, e.Err)
}

func (e *ParamError) Unwrap() error {
	return e.Err
}

// ServerInterfaceWrapper разбирает параметры и вызывает обработчик.
type ServerInterfaceWrapper struct {
	Handler          ServerInterface
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *ServerInterfaceWrapper) HealthLive(w http.ResponseWriter, r *http.Request) {
	siw.Handler.HealthLive(w, r)
}

func (siw *ServerInterfaceWrapper) HealthReady(w http.ResponseWriter, r *http.Request) {
	siw.Handler.HealthReady(w, r)
}

func (siw *ServerInterfaceWrapper) GetMetrics(w http.ResponseWriter, r *http.Request) {
	siw.Handler.GetMetrics(w, r)
}

func (siw *ServerInterfaceWrapper) ProcessCloudinary(w http.ResponseWriter, r *http.Request) {
	siw.Handler.ProcessCloudinary(w, r)
}

func (siw *ServerInterfaceWrapper) VideoWriteback(w http.ResponseWriter, r *http.Request) {
	var params VideoWritebackParams

	if values := r.Header.Values("x-writeback-secret"); len(values) > 0 {
		var secret string
		err := runtime.BindStyledParameterWithOptions("simple", "x-writeback-secret", values[0], &secret,
			runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationHeader, Explode: false, Required: false})
		if err != nil {
			siw.ErrorHandlerFunc(w, r, &ParamError{ParamName: "x-writeback-secret", Err: err})
			return
		}
		params.XWritebackSecret = &secret
	}

	siw.Handler.VideoWriteback(w, r, params)
}

func (siw *ServerInterfaceWrapper) ListCollections(w http.ResponseWriter, r *http.Request) {
	siw.Handler.ListCollections(w, r)
}

func (siw *ServerInterfaceWrapper) ListDocuments(w http.ResponseWriter, r *http.Request) {
	collection, ok := siw.bindCollection(w, r)
	if !ok {
		return
	}

	var params ListDocumentsParams
	query := r.URL.Query()
	for _, p := range []struct {
		name string
		dest any
	}{
		{"site", &params.Site},
		{"status", &params.Status},
		{"slug", &params.Slug},
		{"limit", &params.Limit},
		{"offset", &params.Offset},
	} {
		if err := runtime.BindQueryParameter("form", true, false, p.name, query, p.dest); err != nil {
			siw.ErrorHandlerFunc(w, r, &ParamError{ParamName: p.name, Err: err})
			return
		}
	}

	siw.Handler.ListDocuments(w, r, collection, params)
}

func (siw *ServerInterfaceWrapper) CreateDocument(w http.ResponseWriter, r *http.Request) {
	collection, ok := siw.bindCollection(w, r)
	if !ok {
		return
	}
	siw.Handler.CreateDocument(w, r, collection)
}

func (siw *ServerInterfaceWrapper) GetDocument(w http.ResponseWriter, r *http.Request) {
	collection, id, ok := siw.bindDocument(w, r)
	if !ok {
		return
	}
	siw.Handler.GetDocument(w, r, collection, id)
}

func (siw *ServerInterfaceWrapper) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	collection, id, ok := siw.bindDocument(w, r)
	if !ok {
		return
	}
	siw.Handler.UpdateDocument(w, r, collection, id)
}

func (siw *ServerInterfaceWrapper) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	collection, id, ok := siw.bindDocument(w, r)
	if !ok {
		return
	}
	siw.Handler.DeleteDocument(w, r, collection, id)
}

func (siw *ServerInterfaceWrapper) ListUsers(w http.ResponseWriter, r *http.Request) {
	var params ListUsersParams
	query := r.URL.Query()

	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &params.Limit); err != nil {
		siw.ErrorHandlerFunc(w, r, &ParamError{ParamName: "limit", Err: err})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", query, &params.Offset); err != nil {
		siw.ErrorHandlerFunc(w, r, &ParamError{ParamName: "offset", Err: err})
		return
	}

	siw.Handler.ListUsers(w, r, params)
}

func (siw *ServerInterfaceWrapper) PutUser(w http.ResponseWriter, r *http.Request) {
	subject, ok := siw.bindSubject(w, r)
	if !ok {
		return
	}
	siw.Handler.PutUser(w, r, subject)
}

func (siw *ServerInterfaceWrapper) DeleteUser(w http.ResponseWriter, r *http.Request) {
	subject, ok := siw.bindSubject(w, r)
	if !ok {
		return
	}
	siw.Handler.DeleteUser(w, r, subject)
}

func (siw *ServerInterfaceWrapper) GetAuthMe(w http.ResponseWriter, r *http.Request) {
	siw.Handler.GetAuthMe(w, r)
}

// --- Привязка параметров пути ---

func (siw *ServerInterfaceWrapper) bindPath(w http.ResponseWriter, r *http.Request, name string, dest any) bool {
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), dest,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &ParamError{ParamName: name, Err: err})
		return false
	}
	return true
}

func (siw *ServerInterfaceWrapper) bindCollection(w http.ResponseWriter, r *http.Request) (CollectionSlug, bool) {
	var collection CollectionSlug
	ok := siw.bindPath(w, r, "collection", &collection)
	return collection, ok
}

func (siw *ServerInterfaceWrapper) bindDocument(w http.ResponseWriter, r *http.Request) (CollectionSlug, DocumentId, bool) {
	var id DocumentId
	collection, ok := siw.bindCollection(w, r)
	if !ok {
		return collection, id, false
	}
	ok = siw.bindPath(w, r, "id", &id)
	return collection, id, ok
}

func (siw *ServerInterfaceWrapper) bindSubject(w http.ResponseWriter, r *http.Request) (Subject, bool) {
	var subject Subject
	ok := siw.bindPath(w, r, "subject", &subject)
	return subject, ok
}

// ChiServerOptions — параметры регистрации маршрутов.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerFromMux регистрирует все маршруты контракта в переданном роутере.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{BaseRouter: r})
}

// HandlerWithOptions регистрирует маршруты с параметрами.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:          si,
		ErrorHandlerFunc: options.ErrorHandlerFunc,
	}
	base := options.BaseURL

	r.Get(base+"/health/live", wrapper.HealthLive)
	r.Get(base+"/health/ready", wrapper.HealthReady)
	r.Get(base+"/metrics", wrapper.GetMetrics)

	r.Post(base+"/api/process-cloudinary", wrapper.ProcessCloudinary)
	r.Post(base+"/api/video-writeback", wrapper.VideoWriteback)

	r.Get(base+"/api/v1/collections", wrapper.ListCollections)
	r.Get(base+"/api/v1/collections/{collection}", wrapper.ListDocuments)
	r.Post(base+"/api/v1/collections/{collection}", wrapper.CreateDocument)
	r.Get(base+"/api/v1/collections/{collection}/{id}", wrapper.GetDocument)
	r.Patch(base+"/api/v1/collections/{collection}/{id}", wrapper.UpdateDocument)
	r.Delete(base+"/api/v1/collections/{collection}/{id}", wrapper.DeleteDocument)

	r.Get(base+"/api/v1/users", wrapper.ListUsers)
	r.Put(base+"/api/v1/users/{subject}", wrapper.PutUser)
	r.Delete(base+"/api/v1/users/{subject}", wrapper.DeleteUser)

	r.Get(base+"/api/v1/auth/me", wrapper.GetAuthMe)

	return r
}
