/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/auth"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/history"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/listing"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/live"
)

// errBadRequest marks request-shape problems found before reaching the service.
var errBadRequest = errors.New("bad request")

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(data) == "null" {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type goLiveRequest struct {
	SellerID   string     `json:"sellerId"`
	LiveType   flexString `json:"liveType"`
	AgoraUID   int64      `json:"agoraUID"`
	ProductIDs []string   `json:"productIds"`
}

type selectionRequest struct {
	SellerID   string   `json:"sellerId"`
	ProductIDs []string `json:"productIds"`
}

type endLiveRequest struct {
	SellerID     string `json:"sellerId"`
	TotalUser    int64  `json:"totalUser"`
	LiveComments int64  `json:"liveComments"`
}

type auctionResultRequest struct {
	SellerID     string  `json:"sellerId"`
	ProductID    string  `json:"productId"`
	Status       string  `json:"status"`
	WinnerUserID string  `json:"winnerUserId"`
	WinningBid   float64 `json:"winningBid"`
}

func (a *API) handleGoLive(w http.ResponseWriter, r *http.Request) {
	var req goLiveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SellerID) == "" || req.LiveType == "" {
		writeFailure(w, errBadRequest, "sellerId and liveType are required")
		return
	}

	session, err := a.live.GoLive(r.Context(), live.GoLiveRequest{
		SellerID:   req.SellerID,
		LiveType:   string(req.LiveType),
		AgoraUID:   req.AgoraUID,
		ProductIDs: req.ProductIDs,
	})
	if err != nil {
		a.logFailure(r.Context(), err, "go live failed", req.SellerID)
		writeFailure(w, err, "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     true,
		"message":    "Seller is live successfully.",
		"liveseller": session,
	})
}

func (a *API) handleUpdateSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SellerID) == "" || req.ProductIDs == nil {
		writeFailure(w, errBadRequest, "sellerId and productIds are required")
		return
	}

	result, err := a.live.UpdateSelection(r.Context(), req.SellerID, req.ProductIDs)
	if err != nil {
		a.logFailure(r.Context(), err, "update selection failed", req.SellerID)
		writeFailure(w, err, "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     true,
		"message":    "Selected products updated.",
		"seller":     result.Seller,
		"liveseller": result.Session,
	})
}

func (a *API) handleGoOffline(w http.ResponseWriter, r *http.Request) {
	sellerID := strings.TrimSpace(r.URL.Query().Get("sellerId"))
	if sellerID == "" {
		writeFailure(w, errBadRequest, "sellerId is required")
		return
	}

	seller, err := a.live.GoOffline(r.Context(), sellerID)
	if err != nil {
		a.logFailure(r.Context(), err, "go offline failed", sellerID)
		writeFailure(w, err, "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  true,
		"message": "Seller is offline and selected products have been reset.",
		"data":    seller,
	})
}

func (a *API) handleEndLive(w http.ResponseWriter, r *http.Request) {
	var req endLiveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SellerID) == "" {
		writeFailure(w, errBadRequest, "sellerId is required")
		return
	}
	if req.TotalUser < 0 || req.LiveComments < 0 {
		writeFailure(w, errBadRequest, "counters must not be negative")
		return
	}

	record, err := a.live.EndSession(r.Context(), live.EndSessionRequest{
		SellerID:     req.SellerID,
		TotalUser:    req.TotalUser,
		LiveComments: req.LiveComments,
	})
	if err != nil {
		a.logFailure(r.Context(), err, "end live failed", req.SellerID)
		writeFailure(w, err, "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  true,
		"message": "Live session ended.",
		"data":    record,
	})
}

func (a *API) handleAuctionResult(w http.ResponseWriter, r *http.Request) {
	var req auctionResultRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SellerID) == "" || strings.TrimSpace(req.ProductID) == "" || req.Status == "" {
		writeFailure(w, errBadRequest, "sellerId, productId and status are required")
		return
	}

	session, err := a.live.RecordAuctionResult(r.Context(), live.AuctionResultRequest{
		SellerID:     req.SellerID,
		ProductID:    req.ProductID,
		Status:       req.Status,
		WinnerUserID: req.WinnerUserID,
		WinningBid:   req.WinningBid,
	})
	if err != nil {
		a.logFailure(r.Context(), err, "auction result failed", req.SellerID)
		writeFailure(w, err, "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     true,
		"message":    "Auction result recorded.",
		"liveseller": session,
	})
}

func (a *API) handleLiveAnalytics(w http.ResponseWriter, r *http.Request) {
	historyID := strings.TrimSpace(r.URL.Query().Get("liveHistoryId"))
	if historyID == "" {
		writeFailure(w, errBadRequest, "liveHistoryId is required")
		return
	}

	metrics, err := a.live.Analytics(r.Context(), historyID)
	if err != nil {
		a.logFailure(r.Context(), err, "live analytics failed", "")
		writeFailure(w, err, "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  true,
		"message": "Live analytics retrieved.",
		"data":    metrics,
	})
}

func (a *API) handleLiveSellerList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := optionalInt(q.Get("start"))
	if err != nil {
		writeFailure(w, errBadRequest, "start must be a number")
		return
	}
	size, err := optionalInt(q.Get("limit"))
	if err != nil {
		writeFailure(w, errBadRequest, "limit must be a number")
		return
	}

	result, err := a.listing.ListLive(r.Context(), listing.Query{
		ExcludeUserID: strings.TrimSpace(q.Get("userId")),
		Page:          page,
		PageSize:      size,
	})
	if err != nil {
		a.logFailure(r.Context(), err, "live seller list failed", "")
		writeFailure(w, err, "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     true,
		"message":    "Live sellers retrieved.",
		"total":      result.Total,
		"liveSeller": result.Sellers,
	})
}

func (a *API) handleSelectedProducts(w http.ResponseWriter, r *http.Request) {
	historyID := strings.TrimSpace(r.URL.Query().Get("liveSellingHistoryId"))
	if historyID == "" {
		writeFailure(w, errBadRequest, "liveSellingHistoryId is required")
		return
	}

	products, err := a.live.SelectedProducts(r.Context(), historyID)
	if err != nil {
		a.logFailure(r.Context(), err, "selected products failed", "")
		writeFailure(w, err, "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  true,
		"message": "Selected products retrieved.",
		"data":    products,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeFailure(w, errBadRequest, "invalid request body")
		return false
	}
	return true
}

func optionalInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// statusFor maps service errors onto the HTTP status this API reports.
// Precondition failures are soft: HTTP 200 with status false.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, live.ErrInvalidLiveType),
		errors.Is(err, live.ErrInvalidStatus),
		errors.Is(err, live.ErrWinnerRequired):
		return http.StatusBadRequest
	case errors.Is(err, live.ErrSellerNotFound),
		errors.Is(err, live.ErrLiveSessionNotFound),
		errors.Is(err, live.ErrProductNotFound),
		errors.Is(err, history.ErrHistoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, live.ErrNoProductsSelected),
		errors.Is(err, live.ErrInvalidAttributes),
		errors.Is(err, live.ErrLicenseRequired),
		errors.Is(err, live.ErrLicenseCheckFailed),
		errors.Is(err, live.ErrInvalidStatusTransition),
		errors.Is(err, live.ErrBidBelowMinimum),
		errors.Is(err, live.ErrConflict):
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

func writeFailure(w http.ResponseWriter, err error, message string) {
	if message == "" {
		message = err.Error()
	}
	writeJSON(w, statusFor(err), map[string]any{"status": false, "message": message})
}

func (a *API) logFailure(ctx context.Context, err error, msg, sellerID string) {
	event := a.logger.Warn()
	if statusFor(err) == http.StatusInternalServerError {
		event = a.logger.Error()
	}
	event = event.Str("actor", auth.Actor(ctx))
	if sellerID != "" {
		event = event.Str("seller_id", sellerID)
	}
	event.Err(err).Msg(msg)
}
