// Package common contains constants, sentinel errors and small helpers shared
// by the dropsync client and the reference backend.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// TimestampLayout is the layout used for created_at/updated_at values on disk
// and on the wire. Lexical order of formatted values matches time order.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
