package http

import (
	"context"
	"net/http"

	"financas/internal/log"
)

// The helpers below implement the shared shape of the resource endpoints.
// Each resource handler binds them to its service methods.

func writeList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	OK(w, items)
}

func getResource[T any](w http.ResponseWriter, r *http.Request, get func(context.Context, int64) (T, error)) {
	id, err := pathID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	v, err := get(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	OK(w, v)
}

func createResource[T any](w http.ResponseWriter, r *http.Request, entity string, create func(context.Context, T) (T, error)) {
	var v T
	if err := decodeJSON(r, &v); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	created, err := create(r.Context(), v)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Resource created",
		log.NewFields().WithEntity(entity, 0).WithOperation(log.OpCreate).ToSlice()...)
	Created(w, created)
}

// replaceResource handles PUT: the body is the complete new record.
func replaceResource[T any](w http.ResponseWriter, r *http.Request, entity string, update func(context.Context, int64, T) (T, error)) {
	id, err := pathID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	var v T
	if err := decodeJSON(r, &v); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	saveResource(w, r, entity, log.OpUpdate, id, v, update)
}

// patchResource handles PATCH: the body is merged over the stored record.
func patchResource[T any](w http.ResponseWriter, r *http.Request, entity string, get func(context.Context, int64) (T, error), update func(context.Context, int64, T) (T, error)) {
	id, err := pathID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	current, err := get(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := decodeJSON(r, &current); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	saveResource(w, r, entity, log.OpPatch, id, current, update)
}

func saveResource[T any](w http.ResponseWriter, r *http.Request, entity, op string, id int64, v T, update func(context.Context, int64, T) (T, error)) {
	updated, err := update(r.Context(), id, v)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Resource updated",
		log.NewFields().WithEntity(entity, id).WithOperation(op).ToSlice()...)
	OK(w, updated)
}

func deleteResource(w http.ResponseWriter, r *http.Request, entity string, del func(context.Context, int64) error) {
	id, err := pathID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := del(r.Context(), id); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Resource deleted",
		log.NewFields().WithEntity(entity, id).WithOperation(log.OpDelete).ToSlice()...)
	NoContent(w)
}
