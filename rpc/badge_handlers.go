package rpc

import (
	"net/http"

	"github.com/lober-org/welovedogs/core"
	"github.com/lober-org/welovedogs/crypto"
)

type badgeInitParam struct {
	Owner   string `json:"owner"`
	BaseURI string `json:"baseUri,omitempty"`
	Name    string `json:"name,omitempty"`
	Symbol  string `json:"symbol,omitempty"`
}

type tokenParam struct {
	TokenID uint32 `json:"tokenId"`
}

func (s *Server) handleBadgeInitialize(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, nil)
		return
	}
	var param badgeInitParam
	if err := decodeParam(req, &param); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := crypto.ParseAddress(param.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid owner", err.Error())
		return
	}
	if err := s.node.BadgeInitialize(owner, param.BaseURI, param.Name, param.Symbol); err != nil {
		s.writeCallError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

// signedCall decodes the envelope carried as the single parameter.
func signedCall(w http.ResponseWriter, req *RPCRequest) (*core.SignedCall, bool) {
	var call core.SignedCall
	if err := decodeParam(req, &call); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return nil, false
	}
	return &call, true
}

func (s *Server) handleSignedBadge(w http.ResponseWriter, req *RPCRequest, exec func(*core.SignedCall) error) {
	call, ok := signedCall(w, req)
	if !ok {
		return
	}
	if err := exec(call); err != nil {
		s.writeCallError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleBadgeMint(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	call, ok := signedCall(w, req)
	if !ok {
		return
	}
	id, err := s.node.BadgeMint(call)
	if err != nil {
		s.writeCallError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint32{"tokenId": id})
}

func (s *Server) handleBadgeTransfer(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleSignedBadge(w, req, s.node.BadgeTransfer)
}

func (s *Server) handleBadgeBurn(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleSignedBadge(w, req, s.node.BadgeBurn)
}

func (s *Server) handleBadgePause(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleSignedBadge(w, req, s.node.BadgePause)
}

func (s *Server) handleBadgeUnpause(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleSignedBadge(w, req, s.node.BadgeUnpause)
}

func (s *Server) handleBadgeSetTokenURI(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleSignedBadge(w, req, s.node.BadgeSetTokenURI)
}

func (s *Server) handleBadgeTransferOwnership(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleSignedBadge(w, req, s.node.BadgeTransferOwnership)
}

func (s *Server) handleBadgeOwner(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	owner, err := s.node.BadgeOwner()
	if err != nil {
		s.writeCallError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, addressString(owner))
}

func (s *Server) handleBadgeTokenURI(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var param tokenParam
	if err := decodeParam(req, &param); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	uri, err := s.node.BadgeTokenURI(param.TokenID)
	if err != nil {
		s.writeCallError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, uri)
}

func (s *Server) handleBadgeOwnerOf(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var param tokenParam
	if err := decodeParam(req, &param); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := s.node.BadgeOwnerOf(param.TokenID)
	if err != nil {
		s.writeCallError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, addressString(owner))
}

func (s *Server) handleBadgeBalanceOf(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var param addressParam
	if err := decodeParam(req, &param); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := crypto.ParseAddress(param.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	balance, err := s.node.BadgeBalanceOf(owner)
	if err != nil {
		s.writeCallError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, balance)
}

func (s *Server) handleBadgeTotalSupply(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	supply, err := s.node.BadgeTotalSupply()
	if err != nil {
		s.writeCallError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, supply)
}

func (s *Server) handleBadgeTokensOf(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var param addressParam
	if err := decodeParam(req, &param); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := crypto.ParseAddress(param.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	tokens, err := s.node.BadgeTokensOf(owner)
	if err != nil {
		s.writeCallError(w, req.ID, err)
		return
	}
	if tokens == nil {
		tokens = []uint32{}
	}
	writeResult(w, req.ID, tokens)
}

func (s *Server) handleBadgePaused(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	paused, err := s.node.BadgePaused()
	if err != nil {
		s.writeCallError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, paused)
}

func (s *Server) handleBadgeMetadata(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	meta, err := s.node.BadgeMetadata()
	if err != nil {
		s.writeCallError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, metadataView(meta))
}
