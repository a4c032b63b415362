// Package common contains shared constants and sentinel errors used across
// CarVault components.
package common

import "time"

// Metadata keys carried on outbound asset-store requests.
const (
	DelegationHeaderName    = "x-delegation"
	IngressExpiryHeaderName = "x-ingress-expiry"
	SignatureHeaderName     = "x-signature"
)

// Network modes selecting the deployment a client talks to.
const (
	NetworkLocal = "local"
	NetworkLive  = "live"
)

// DelegationMaxAge is the longest lifetime a delegation may be issued for.
const DelegationMaxAge = 7 * 24 * time.Hour

// ContentEncodingIdentity is the only content encoding the asset store accepts.
const ContentEncodingIdentity = "identity"

// AssetKeyPrefix namespaces uploaded files inside the asset store.
const AssetKeyPrefix = "/file-"
