package http

import (
	"net/http"

	"github.com/google/uuid"

	"litepay/internal/core"
	"litepay/internal/ledger"
	"litepay/internal/settlement"
)

type expenseResponse struct {
	GroupID string       `json:"groupId"`
	Expense core.Expense `json:"expense"`
}

type verificationResponse struct {
	SessionID string `json:"sessionId"`
	settlement.State
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Groups())
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	g, err := s.svc.CreateGroup(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	id, err := parseGroupID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	g, ok := s.svc.Group(id)
	if !ok {
		writeServiceError(w, r, core.ErrGroupNotFound)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleSelectedGroup(w http.ResponseWriter, r *http.Request) {
	g, ok := s.svc.Selected()
	if !ok {
		writeError(w, http.StatusNotFound, "no group selected")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleSelectGroup(w http.ResponseWriter, r *http.Request) {
	id, err := parseGroupID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := s.svc.SelectGroup(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveGroup(w http.ResponseWriter, r *http.Request) {
	id, err := parseGroupID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := s.svc.RemoveGroup(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	id, err := parseGroupID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req memberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := s.svc.AddMember(r.Context(), id, req.Name); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.writeGroup(w, r, id, http.StatusOK)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	id, err := parseGroupID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := s.svc.RemoveMember(r.Context(), id, pathParam(r, "member")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.writeGroup(w, r, id, http.StatusOK)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseGroupID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	e, err := s.svc.AddExpense(r.Context(), id, ledger.ExpenseInput{
		Description: req.Description,
		Amount:      req.Amount,
		PaidBy:      req.PaidBy,
		Splits:      req.Splits,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, expenseResponse{GroupID: id.String(), Expense: e})
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	id, err := parseGroupID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	b, err := s.svc.Balances(id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	id, err := parseGroupID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	sum, err := s.svc.Summary(id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handlePaymentAddress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"address": s.svc.GeneratePaymentAddress()})
}

// handleVerify runs a lookup for the caller's session. With ?async=1 it
// answers 202 with the Loading state and the result is polled from
// GET /api/verifications/{sessionID}.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	sid := sessionID(r, req.SessionID)

	if wantsAsync(r) {
		st, err := s.svc.StartVerification(r.Context(), sid, req.TxID, req.ExpectedAmount)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, verificationResponse{SessionID: sid, State: st})
		return
	}

	st, err := s.svc.VerifyPayment(r.Context(), sid, req.TxID, req.ExpectedAmount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verificationResponse{SessionID: sid, State: st})
}

func (s *Server) handleVerificationState(w http.ResponseWriter, r *http.Request) {
	sid := pathParam(r, "sessionID")
	st, ok := s.svc.VerificationState(sid)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown verification session")
		return
	}
	writeJSON(w, http.StatusOK, verificationResponse{SessionID: sid, State: st})
}

func (s *Server) handleResetVerification(w http.ResponseWriter, r *http.Request) {
	if !s.svc.ResetVerification(pathParam(r, "sessionID")) {
		writeError(w, http.StatusNotFound, "unknown verification session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeGroup(w http.ResponseWriter, r *http.Request, id uuid.UUID, status int) {
	g, ok := s.svc.Group(id)
	if !ok {
		writeServiceError(w, r, core.ErrGroupNotFound)
		return
	}
	writeJSON(w, status, g)
}
