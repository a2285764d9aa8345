package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/gorilla/mux"

	"github.com/xenking/combo-store/internal/domain/staff"
)

func (h *Handler) listStaff(w http.ResponseWriter, r *http.Request) {
	members, err := h.staff.List(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	var e jx.Encoder
	e.ArrStart()
	for i := range members {
		encodeMember(&e, &members[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

func decodeRole(d *jx.Decoder) (staff.Role, error) {
	s, err := d.Str()
	if err != nil {
		return "", err
	}
	role, err := staff.ParseRole(s)
	if err != nil {
		return "", badRequest("%v", err)
	}
	return role, nil
}

// createStaff registers a member and returns their API key. The key is not
// retrievable afterwards.
func (h *Handler) createStaff(w http.ResponseWriter, r *http.Request) {
	var (
		name, email string
		role        = staff.RoleStaff
	)
	if err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			name, err = d.Str()
		case "email":
			email, err = d.Str()
		case "role":
			role, err = decodeRole(d)
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		fail(w, r, err)
		return
	}

	m, key, err := h.staff.Create(r.Context(), name, email, role)
	if err != nil {
		fail(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("member")
	encodeMember(&e, m)
	e.FieldStart("apiKey")
	e.Str(key)
	e.ObjEnd()
	writeJSON(w, http.StatusCreated, &e)
}

func (h *Handler) updateStaffRole(w http.ResponseWriter, r *http.Request) {
	var role staff.Role
	if err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		if key != "role" {
			return d.Skip()
		}
		var err error
		role, err = decodeRole(d)
		return err
	}); err != nil {
		fail(w, r, err)
		return
	}
	if role == "" {
		fail(w, r, badRequest("role is required"))
		return
	}
	if err := h.staff.UpdateRole(r.Context(), mux.Vars(r)["id"], role); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deactivateStaff(w http.ResponseWriter, r *http.Request) {
	if err := h.staff.Deactivate(r.Context(), mux.Vars(r)["id"]); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
