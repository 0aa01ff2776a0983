package funnel

import "errors"

var (
	// ErrMissingBuyerEmail is returned when a purchase webhook has no buyer email.
	ErrMissingBuyerEmail = errors.New("hotmart payload missing buyer.email")
	// ErrMissingTransactionID is returned when a purchase webhook has no transaction id.
	ErrMissingTransactionID = errors.New("hotmart payload missing purchase.transaction")
	// ErrMissingLandingURL is returned when a track-click payload has no landing URL.
	ErrMissingLandingURL = errors.New("track-click payload missing landingUrl")
	// ErrMissingSessionID is returned when a checkout-intent payload has no session id.
	ErrMissingSessionID = errors.New("checkout-intent payload missing sessionId")
)
