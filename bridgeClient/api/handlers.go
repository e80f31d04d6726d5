package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"github.com/holiman/uint256"

	"github.com/tipjar/crossbridge/bridgeClient/chains/svm"
	"github.com/tipjar/crossbridge/bridgeClient/core"
	"github.com/tipjar/crossbridge/bridgeClient/db"
	bridgeerrors "github.com/tipjar/crossbridge/bridgeClient/errors"
)

const maxBodySize = 64 * 1024

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleBuildTransfer handles POST /api/v1/transfers/build
func (s *Server) handleBuildTransfer(w http.ResponseWriter, r *http.Request) {
	if s.deps.Builder == nil {
		writeError(w, http.StatusServiceUnavailable, "transfer builder is not configured", "")
		return
	}

	var body BuildRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), string(bridgeerrors.ErrCodeValidation))
		return
	}

	req, err := body.toTransferRequest()
	if err != nil {
		s.writeChainError(w, err)
		return
	}

	et, err := s.deps.Builder.BuildTransfer(req)
	if err != nil {
		s.writeChainError(w, err)
		return
	}

	s.logger.Debug().Str("transfer_id", et.ID).Str("kind", string(et.Kind)).Msg("transfer built")
	writeJSON(w, http.StatusOK, QueryResponse{Data: et.View()})
}

// handleListTransfers handles GET /api/v1/transfers?state=<state>&limit=<n>
func (s *Server) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "transfer history is not configured", "")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", string(bridgeerrors.ErrCodeValidation))
			return
		}
		limit = n
	}

	transfers, err := s.deps.History.ListTransfers(r.URL.Query().Get("state"), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list transfers")
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, QueryResponse{Data: transfers})
}

// handleGetTransfer handles GET /api/v1/transfers/{id}
func (s *Server) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "transfer history is not configured", "")
		return
	}

	id := mux.Vars(r)["id"]
	transfer, err := s.deps.History.GetTransfer(id)
	switch {
	case errors.Is(err, db.ErrTransferNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("transfer %s not found", id), "")
		return
	case err != nil:
		s.logger.Error().Err(err).Str("transfer_id", id).Msg("failed to read transfer")
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, QueryResponse{Data: transfer})
}

// handlePrices handles GET /api/v1/prices
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	if s.deps.Prices == nil {
		writeError(w, http.StatusServiceUnavailable, "price service is not configured", "")
		return
	}

	quotes, err := s.deps.Prices.Quotes(r.Context())
	if err != nil {
		s.writeChainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, QueryResponse{Data: quotes, LastFetched: quotes.FetchedAt})
}

func (b BuildRequest) toTransferRequest() (core.TransferRequest, error) {
	kind, err := core.ParseTransferKind(b.Kind)
	if err != nil {
		return core.TransferRequest{}, bridgeerrors.NewValidationError("", err.Error())
	}

	req := core.TransferRequest{
		Kind:      kind,
		Sender:    b.Sender,
		Recipient: b.Recipient,
		Token:     b.Token,
	}
	if b.Amount != "" {
		amount, ok := new(big.Int).SetString(b.Amount, 10)
		if !ok {
			return req, bridgeerrors.NewValidationError("", fmt.Sprintf("amount %q is not a base-unit integer", b.Amount))
		}
		req.Amount = amount
	}

	if b.Call != nil {
		call := &svm.ContractCall{Target: b.Call.Target, Value: uint256.NewInt(0)}
		if b.Call.Value != "" {
			value, err := uint256.FromDecimal(b.Call.Value)
			if err != nil {
				return req, bridgeerrors.NewValidationError("", fmt.Sprintf("call value: %v", err))
			}
			call.Value = value
		}
		if b.Call.Data != "" {
			data, err := hexutil.Decode(b.Call.Data)
			if err != nil {
				return req, bridgeerrors.NewValidationError("", fmt.Sprintf("call data: %v", err))
			}
			call.Data = data
		}
		req.Call = call
	}
	return req, nil
}

func (s *Server) writeChainError(w http.ResponseWriter, err error) {
	code := bridgeerrors.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case bridgeerrors.ErrCodeValidation:
		status = http.StatusBadRequest
	case bridgeerrors.ErrCodeConfig:
		status = http.StatusServiceUnavailable
	case bridgeerrors.ErrCodeNetwork, bridgeerrors.ErrCodeProtocol:
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		s.logger.Warn().Err(err).Str("code", string(code)).Msg("request failed")
	}
	writeError(w, status, err.Error(), string(code))
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
