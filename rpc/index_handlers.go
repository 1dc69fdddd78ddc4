package rpc

import (
	"errors"
	"net/http"

	"github.com/lober-org/welovedogs/crypto"
	"github.com/lober-org/welovedogs/indexer"
)

type recentParam struct {
	Limit int `json:"limit"`
}

func (s *Server) indexAvailable(w http.ResponseWriter, req *RPCRequest) bool {
	if s.index == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeUnavailable, "donation index disabled", nil)
		return false
	}
	return true
}

func (s *Server) handleIndexRecipientStats(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleIndexStats(w, req, func(addr [20]byte) (*indexer.Stats, error) {
		return s.index.RecipientStats(addr)
	})
}

func (s *Server) handleIndexDonorStats(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleIndexStats(w, req, func(addr [20]byte) (*indexer.Stats, error) {
		return s.index.DonorStats(addr)
	})
}

func (s *Server) handleIndexStats(w http.ResponseWriter, req *RPCRequest, lookup func([20]byte) (*indexer.Stats, error)) {
	if !s.indexAvailable(w, req) {
		return
	}
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
	stats, err := lookup(addr)
	if err != nil {
		s.internalError(w, req.ID, "index query failed", err)
		return
	}
	writeResult(w, req.ID, statsView(stats))
}

func (s *Server) handleIndexRecent(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if !s.indexAvailable(w, req) {
		return
	}
	var param recentParam
	if err := decodeParam(req, &param); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	rows, err := s.index.Recent(param.Limit)
	if err != nil {
		if errors.Is(err, indexer.ErrInvalidLimit) {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
			return
		}
		s.internalError(w, req.ID, "index query failed", err)
		return
	}
	out := make([]*DonationView, 0, len(rows))
	for _, row := range rows {
		out = append(out, indexedView(row))
	}
	writeResult(w, req.ID, out)
}
