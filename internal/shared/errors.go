package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Provider errors
	ErrTokenExchange = fmt.Errorf("token exchange failed")
	ErrAPIRequest    = fmt.Errorf("API request failed")
)
