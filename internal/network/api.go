package network

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MRamiBalles/LodgingDesk/server/internal/engine"
	"github.com/MRamiBalles/LodgingDesk/server/internal/events"
	"github.com/MRamiBalles/LodgingDesk/server/internal/platform/logger"
)

// API exposes the desk operations over REST.
type API struct {
	hub    *Hub
	store  *engine.Store
	feed   *FeedHandler
	logger *logger.Logger
}

// NewAPI creates the REST handlers. Rejections are shown on the hub banner.
func NewAPI(hub *Hub, eventLog *events.EventLog, log *logger.Logger) *API {
	if log == nil {
		log = logger.Discard()
	}
	return &API{
		hub:    hub,
		store:  hub.Store(),
		feed:   NewFeedHandler(eventLog, log),
		logger: log,
	}
}

// Response is the body of every mutation response.
type Response struct {
	OK     bool           `json:"ok"`
	Notice *events.Notice `json:"notice"`
	Kind   engine.Kind    `json:"kind,omitempty"`
	Data   interface{}    `json:"data,omitempty"`
}

// StatusFor maps an operation error to its HTTP status.
func StatusFor(err error) int {
	switch engine.KindOf(err) {
	case "":
		if err == nil {
			return http.StatusOK
		}
		if errors.Is(err, ErrUnknownCommand) {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	case engine.KindConflict:
		return http.StatusConflict
	case engine.KindNotFound:
		return http.StatusNotFound
	case engine.KindInvalidState:
		return http.StatusUnprocessableEntity
	case engine.KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Router builds the REST, WebSocket and metrics routes.
func (a *API) Router(extra ...func(r *mux.Router)) *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	// Handle OPTIONS preflight requests for all routes
	router.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.HandleFunc("/health", a.handleHealth).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/rooms", a.handleListRooms).Methods("GET")
	api.HandleFunc("/rooms", a.handleAddRoom).Methods("POST")
	api.HandleFunc("/rooms/{number}", a.handleEditRoom).Methods("PUT")
	api.HandleFunc("/rooms/{number}", a.handleDeleteRoom).Methods("DELETE")

	api.HandleFunc("/lecturers", a.handleListLecturers).Methods("GET")
	api.HandleFunc("/lecturers", a.handleCheckIn).Methods("POST")
	api.HandleFunc("/lecturers/{id}", a.handleCheckOutByID).Methods("DELETE")
	api.HandleFunc("/lecturers/{id}/room", a.handleReassign).Methods("PUT")
	api.HandleFunc("/checkout", a.handleCheckOutByName).Methods("POST")

	api.HandleFunc("/occupancy", a.handleOccupancy).Methods("GET")
	api.HandleFunc("/state", a.handleState).Methods("GET")
	api.HandleFunc("/notice", a.handleNotice).Methods("GET")
	api.HandleFunc("/feed", a.feed.HandleFeed).Methods("GET")

	router.HandleFunc("/ws", a.hub.ServeWS)

	for _, fn := range extra {
		fn(router)
	}
	return router
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonSuccess(w, map[string]interface{}{
		"status":  "ok",
		"clients": a.hub.ClientCount(),
	})
}

func (a *API) handleListRooms(w http.ResponseWriter, r *http.Request) {
	jsonSuccess(w, a.store.Rooms())
}

func (a *API) handleAddRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Number string `json:"number"`
	}
	if !a.decode(w, r, &req) {
		return
	}
	a.run(w, Command{Type: CmdAddRoom, Number: req.Number}, http.StatusCreated)
}

func (a *API) handleEditRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Number string `json:"number"`
	}
	if !a.decode(w, r, &req) {
		return
	}
	a.run(w, Command{Type: CmdEditRoom, Number: mux.Vars(r)["number"], NewNumber: req.Number}, http.StatusOK)
}

func (a *API) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	a.run(w, Command{Type: CmdDeleteRoom, Number: mux.Vars(r)["number"]}, http.StatusOK)
}

func (a *API) handleListLecturers(w http.ResponseWriter, r *http.Request) {
	jsonSuccess(w, a.store.Roster(a.store.Now()))
}

func (a *API) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req engine.CheckInRequest
	if !a.decode(w, r, &req) {
		return
	}
	a.run(w, Command{
		Type:         CmdCheckIn,
		Name:         req.Name,
		ClassName:    req.ClassName,
		RoomNumber:   req.RoomNumber,
		NumberOfDays: req.NumberOfDays,
	}, http.StatusCreated)
}

func (a *API) handleCheckOutByID(w http.ResponseWriter, r *http.Request) {
	a.run(w, Command{Type: CmdCheckOut, LecturerID: mux.Vars(r)["id"]}, http.StatusOK)
}

func (a *API) handleCheckOutByName(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !a.decode(w, r, &req) {
		return
	}
	a.run(w, Command{Type: CmdCheckOut, Name: req.Name}, http.StatusOK)
}

func (a *API) handleReassign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomNumber string `json:"roomNumber"`
	}
	if !a.decode(w, r, &req) {
		return
	}
	a.run(w, Command{Type: CmdReassignRoom, LecturerID: mux.Vars(r)["id"], RoomNumber: req.RoomNumber}, http.StatusOK)
}

func (a *API) handleOccupancy(w http.ResponseWriter, r *http.Request) {
	jsonSuccess(w, a.store.Occupancy())
}

func (a *API) handleState(w http.ResponseWriter, r *http.Request) {
	jsonSuccess(w, a.store.View())
}

func (a *API) handleNotice(w http.ResponseWriter, r *http.Request) {
	n, ok := a.hub.Banner().Current()
	if !ok {
		jsonSuccess(w, NoticePayload{})
		return
	}
	jsonSuccess(w, NoticePayload{Notice: &n})
}

// run executes cmd and writes the outcome with its notice.
func (a *API) run(w http.ResponseWriter, cmd Command, okStatus int) {
	res := Execute(a.store, cmd)
	status := okStatus
	if !res.OK {
		status = StatusFor(res.Err)
		a.hub.Reject(res)
	}
	writeJSON(w, status, Response{OK: res.OK, Notice: res.Notice, Kind: res.Kind, Data: res.Data})
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.logger.Warn("Invalid request body: " + err.Error())
		writeJSON(w, http.StatusBadRequest, Response{Notice: invalidBodyNotice(), Kind: engine.KindInvalid})
		return false
	}
	return true
}

func invalidBodyNotice() *events.Notice {
	return events.Failure("Invalid request body")
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// jsonError sends an error response.
func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// jsonSuccess sends a success response.
func jsonSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, data)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
