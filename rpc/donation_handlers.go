package rpc

import (
	"net/http"

	"github.com/lober-org/welovedogs/core"
	"github.com/lober-org/welovedogs/crypto"
	"github.com/lober-org/welovedogs/native/donation"
)

type addressParam struct {
	Address string `json:"address"`
}

type listParam struct {
	Address string `json:"address"`
	Limit   uint32 `json:"limit"`
}

type idParam struct {
	ID uint64 `json:"id"`
}

func (s *Server) handleDonationInitialize(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, nil)
		return
	}
	if err := s.node.DonationInitialize(); err != nil {
		s.writeCallError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleDonationDonate(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var call core.SignedCall
	if err := decodeParam(req, &call); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := s.node.Donate(&call)
	if err != nil {
		s.writeCallError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"id": id})
}

func (s *Server) handleDonationCount(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	count, err := s.node.DonationCount()
	if err != nil {
		s.writeCallError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, count)
}

func (s *Server) handleDonationGet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var param idParam
	if err := decodeParam(req, &param); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	rec, ok, err := s.node.GetDonation(param.ID)
	if err != nil {
		s.writeCallError(w, req.ID, err)
		return
	}
	if !ok {
		writeResult(w, req.ID, nil)
		return
	}
	writeResult(w, req.ID, donationView(rec))
}

func (s *Server) handleDonationTotal(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var param addressParam
	if err := decodeParam(req, &param); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	recipient, err := crypto.ParseAddress(param.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	total, err := s.node.TotalDonated(recipient)
	if err != nil {
		s.writeCallError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, total.String())
}

func (s *Server) handleDonorDonations(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleDonationList(w, req, s.node.DonorDonations)
}

func (s *Server) handleRecipientDonations(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleDonationList(w, req, s.node.RecipientDonations)
}

func (s *Server) handleDonationList(w http.ResponseWriter, req *RPCRequest, scan func([20]byte, uint32) ([]*donation.DonationRecord, error)) {
	var param listParam
	if err := decodeParam(req, &param); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := crypto.ParseAddress(param.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	if err := s.checkLimit(param.Limit); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	records, err := scan(addr, param.Limit)
	if err != nil {
		s.writeCallError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, donationViews(records))
}

func (s *Server) handleAuthNonce(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var param addressParam
	if err := decodeParam(req, &param); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := crypto.ParseAddress(param.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	nonce, err := s.node.Nonce(addr)
	if err != nil {
		s.writeCallError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"nonce": nonce})
}
