package handlers

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SaShakib/CalendarAPIRrule/server/auth"
	"github.com/SaShakib/CalendarAPIRrule/server/events"
	"github.com/SaShakib/CalendarAPIRrule/server/mutation"
)

// handleCreate handles POST /api/events
func (r *Router) handleCreate(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)

	var payload createPayload
	if err := decodeBody(req, &payload, true); err != nil {
		r.writeError(w, req, err)
		return
	}
	in, err := payload.input()
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	ev, err := r.service.Create(req.Context(), auth.GetPrincipalFromContext(req.Context()), in)
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	w.Header().Set(HeaderETag, etag(ev.Version))
	writeJSON(w, http.StatusCreated, ev)
}

// handleGet handles GET /api/events/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) {
	id, err := eventID(chi.URLParam(req, "id"))
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	ev, err := r.service.Get(req.Context(), auth.GetPrincipalFromContext(req.Context()), id)
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	w.Header().Set(HeaderETag, etag(ev.Version))
	writeJSON(w, http.StatusOK, ev)
}

// handleUpdate handles PUT /api/events/{id}?updateType=
func (r *Router) handleUpdate(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)

	id, err := eventID(chi.URLParam(req, "id"))
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	scope, err := mutation.ParseScope("updateType", req.URL.Query().Get("updateType"))
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	var payload updatePayload
	if err := decodeBody(req, &payload, true); err != nil {
		r.writeError(w, req, err)
		return
	}
	date, err := r.occurrenceDate(req, payload.OccurrenceDate)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	changes, err := payload.changes()
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	version, err := ifMatch(req)
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	ev, err := r.service.Update(req.Context(), auth.GetPrincipalFromContext(req.Context()), events.UpdateRequest{
		ID:             id,
		Scope:          scope,
		OccurrenceDate: date,
		Changes:        changes,
		IfMatch:        version,
	})
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	w.Header().Set(HeaderETag, etag(ev.Version))
	writeJSON(w, http.StatusOK, ev)
}

// handleDelete handles DELETE /api/events/{id}?deleteType=
func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)

	id, err := eventID(chi.URLParam(req, "id"))
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	scope, err := mutation.ParseScope("deleteType", req.URL.Query().Get("deleteType"))
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	var payload deletePayload
	if err := decodeBody(req, &payload, false); err != nil {
		r.writeError(w, req, err)
		return
	}
	date, err := r.occurrenceDate(req, payload.OccurrenceDate)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	version, err := ifMatch(req)
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	msg, err := r.service.Delete(req.Context(), auth.GetPrincipalFromContext(req.Context()), events.DeleteRequest{
		ID:             id,
		Scope:          scope,
		OccurrenceDate: date,
		IfMatch:        version,
	})
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// handleMyEvents handles GET /api/myevents?start=&end=
func (r *Router) handleMyEvents(w http.ResponseWriter, req *http.Request) {
	list, err := r.occurrences(req)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleMyEventsICS handles GET /api/myevents.ics?start=&end=
func (r *Router) handleMyEventsICS(w http.ResponseWriter, req *http.Request) {
	list, err := r.occurrences(req)
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	var buf bytes.Buffer
	if err := events.WriteICS(&buf, list, r.now()); err != nil {
		r.writeError(w, req, err)
		return
	}

	w.Header().Set(HeaderContentType, MimeTypeCalendar)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (r *Router) occurrences(req *http.Request) (*events.OccurrenceList, error) {
	q := req.URL.Query()
	start, err := r.instantParam("start", q.Get("start"))
	if err != nil {
		return nil, err
	}
	end, err := r.instantParam("end", q.Get("end"))
	if err != nil {
		return nil, err
	}
	return r.service.Occurrences(req.Context(), auth.GetPrincipalFromContext(req.Context()), start, end)
}
