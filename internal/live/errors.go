package live

import (
	"errors"

	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/catalog"
	"github.com/codestorhub-123/TrendyCart-Backend-sub001/internal/license"
)

var (
	// ErrSellerNotFound indicates the seller does not exist.
	ErrSellerNotFound = errors.New("seller not found")

	// ErrLiveSessionNotFound indicates the seller has no live session row.
	ErrLiveSessionNotFound = errors.New("live session not found")

	// ErrProductNotFound indicates the product is not part of the live session.
	ErrProductNotFound = errors.New("product not found in live session")

	// ErrInvalidLiveType indicates the live type is neither Normal nor Auction.
	ErrInvalidLiveType = errors.New("invalid live type")

	// ErrNoProductsSelected indicates going live with an empty selection.
	ErrNoProductsSelected = errors.New("no products selected")

	// ErrInvalidAttributes indicates a selected product has malformed attributes.
	ErrInvalidAttributes = catalog.ErrInvalidAttributes

	// ErrLicenseRequired indicates the seller's license does not allow the live type.
	ErrLicenseRequired = license.ErrLicenseRequired

	// ErrLicenseCheckFailed indicates the license could not be verified.
	ErrLicenseCheckFailed = license.ErrLicenseCheckFailed

	// ErrConflict indicates another writer changed the seller's live state first.
	ErrConflict = errors.New("live state changed concurrently")

	// ErrInvalidStatus indicates an unknown product status.
	ErrInvalidStatus = errors.New("invalid product status")

	// ErrInvalidStatusTransition indicates a product status change that is not allowed.
	ErrInvalidStatusTransition = errors.New("invalid product status transition")

	// ErrWinnerRequired indicates a completed auction without a winner.
	ErrWinnerRequired = errors.New("winner required for completed auction")

	// ErrBidBelowMinimum indicates the winning bid is under the minimum bid price.
	ErrBidBelowMinimum = errors.New("winning bid below minimum bid price")
)
