package http

import (
	"net/http"

	"financas/internal/log"
)

const (
	entityCategory    = "categoria"
	entityTransaction = "transacao"
	entityGoal        = "meta"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Categories.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeList(w, items)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	getResource(w, r, s.svc.Categories.Get)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	createResource(w, r, entityCategory, s.svc.Categories.Create)
}

func (s *Server) handleReplaceCategory(w http.ResponseWriter, r *http.Request) {
	replaceResource(w, r, entityCategory, s.svc.Categories.Update)
}

func (s *Server) handlePatchCategory(w http.ResponseWriter, r *http.Request) {
	patchResource(w, r, entityCategory, s.svc.Categories.Get, s.svc.Categories.Update)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	deleteResource(w, r, entityCategory, s.svc.Categories.Delete)
}

// handleListTransactions lists transactions newest first, narrowed by the
// optional query filters.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := ParseTransactionFilter(r.URL.Query())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	items, err := s.svc.Transactions.List(r.Context(), f)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	log.FromContext(r.Context()).DebugContext(r.Context(), "Transactions listed",
		log.FieldOperation, log.OpList, "count", len(items), "filtered", !f.IsEmpty())
	writeList(w, items)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	getResource(w, r, s.svc.Transactions.Get)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	createResource(w, r, entityTransaction, s.svc.Transactions.Create)
}

func (s *Server) handleReplaceTransaction(w http.ResponseWriter, r *http.Request) {
	replaceResource(w, r, entityTransaction, s.svc.Transactions.Update)
}

func (s *Server) handlePatchTransaction(w http.ResponseWriter, r *http.Request) {
	patchResource(w, r, entityTransaction, s.svc.Transactions.Get, s.svc.Transactions.Update)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	deleteResource(w, r, entityTransaction, s.svc.Transactions.Delete)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Goals.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeList(w, items)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	getResource(w, r, s.svc.Goals.Get)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	createResource(w, r, entityGoal, s.svc.Goals.Create)
}

func (s *Server) handleReplaceGoal(w http.ResponseWriter, r *http.Request) {
	replaceResource(w, r, entityGoal, s.svc.Goals.Update)
}

func (s *Server) handlePatchGoal(w http.ResponseWriter, r *http.Request) {
	patchResource(w, r, entityGoal, s.svc.Goals.Get, s.svc.Goals.Update)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	deleteResource(w, r, entityGoal, s.svc.Goals.Delete)
}
