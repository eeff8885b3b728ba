package v1

import (
	"net/http"

	"familytree/application/commands"
	"familytree/application/commands/bus"
	"familytree/application/queries"
	querybus "familytree/application/queries/bus"
	"familytree/pkg/common"
	pkgerrors "familytree/pkg/errors"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// BasePath is where the member API is served
const BasePath = "/api/family-members"

const (
	msgRequiredFields = "Nama lengkap dan jenis kelamin wajib diisi"
	msgSpouseGender   = "Pasangan tidak boleh berjenis kelamin sama"
	msgNotFound       = "Anggota tidak ditemukan"
	msgDeleted        = "Anggota berhasil dihapus"
)

// MemberHandler serves the family member API on top of the person buses
type MemberHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewRouter creates the member API router
func NewRouter(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, logger *zap.Logger) *mux.Router {
	h := &MemberHandler{commandBus: commandBus, queryBus: queryBus, logger: logger}

	router := mux.NewRouter()
	members := router.PathPrefix(BasePath).Subrouter()
	members.Use(versionHeaders)

	members.HandleFunc("", h.ListMembers).Methods(http.MethodGet)
	members.HandleFunc("", h.CreateMember).Methods(http.MethodPost)
	members.HandleFunc("/{id}", h.GetMember).Methods(http.MethodGet)
	members.HandleFunc("/{id}", h.UpdateMember).Methods(http.MethodPut)
	members.HandleFunc("/{id}", h.DeleteMember).Methods(http.MethodDelete)

	return router
}

// versionHeaders marks the member API as superseded by /api/v2
func versionHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-API-Version", "v1")
		w.Header().Set("X-API-Latest", "v2")
		w.Header().Set("X-API-Deprecated", "true")
		next.ServeHTTP(w, r)
	})
}

// ListMembers handles GET /api/family-members, newest first
func (h *MemberHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.ListPersonsQuery{})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	list := result.(*queries.PersonListResult)
	members := make([]Member, 0, len(list.Persons))
	for _, p := range list.Persons {
		members = append(members, newMember(p))
	}
	common.RespondJSON(w, http.StatusOK, members)
}

// CreateMember handles POST /api/family-members
func (h *MemberHandler) CreateMember(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	id := uuid.New().String()
	if err := h.commandBus.Send(r.Context(), commands.CreatePersonCommand{PersonID: id, PersonFields: req.fields()}); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondMember(w, r, http.StatusCreated, id)
}

// GetMember handles GET /api/family-members/{id}
func (h *MemberHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	h.respondMember(w, r, http.StatusOK, mux.Vars(r)["id"])
}

// UpdateMember handles PUT /api/family-members/{id}
func (h *MemberHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	if err := h.commandBus.Send(r.Context(), commands.UpdatePersonCommand{PersonID: id, PersonFields: req.fields()}); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondMember(w, r, http.StatusOK, id)
}

// DeleteMember handles DELETE /api/family-members/{id}
func (h *MemberHandler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	if err := h.commandBus.Send(r.Context(), commands.DeletePersonCommand{PersonID: mux.Vars(r)["id"]}); err != nil {
		h.respondError(w, r, err)
		return
	}
	common.RespondMessage(w, http.StatusOK, msgDeleted)
}

func (h *MemberHandler) decode(w http.ResponseWriter, r *http.Request) (MemberRequest, bool) {
	var req MemberRequest
	if err := common.DecodeJSON(w, r, &req, false); err != nil {
		common.RespondError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	if !req.complete() {
		common.RespondError(w, http.StatusBadRequest, msgRequiredFields)
		return req, false
	}
	return req, true
}

func (h *MemberHandler) respondMember(w http.ResponseWriter, r *http.Request, status int, id string) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetPersonQuery{PersonID: id})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	common.RespondJSON(w, status, newMember(*result.(*queries.PersonView)))
}

// respondError translates errors into the member API's {success:false, error} body
func (h *MemberHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case pkgerrors.HasCode(err, "PERSON_NOT_FOUND"):
		common.RespondError(w, http.StatusNotFound, msgNotFound)
		return
	case pkgerrors.HasCode(err, "SPOUSE_GENDER_MISMATCH"):
		common.RespondError(w, http.StatusBadRequest, msgSpouseGender)
		return
	}

	status, body := pkgerrors.Resolve(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Member request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	common.RespondError(w, status, body.Message)
}
