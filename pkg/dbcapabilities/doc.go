// Package dbcapabilities provides a shared registry describing the capabilities
// of the database backends supported by dbbridge, together with the connection
// string codec built on that metadata.
//
// Callers branch on capabilities before attempting an operation:
//
//	import "github.com/tvgelderen/dbbridge/pkg/dbcapabilities"
//
//	func canRunSQL(db string) bool {
//	    id, ok := dbcapabilities.ParseID(db)
//	    return ok && dbcapabilities.HasCapability(id, dbcapabilities.CapRawSQL)
//	}
//
// Every backend's capability map covers the full global capability set (see
// AllCapabilityIDs), and every unsupported entry carries a human-readable
// reason that surfaces in errors and UIs.
//
// The codec parses, builds, and validates database URIs:
//
//	details, err := dbcapabilities.ParseConnectionString("postgres://app@db:5432/orders?sslmode=require")
//	uri, err := dbcapabilities.BuildConnectionString(details)
//	issues := dbcapabilities.ValidateConnectionString(uri) // empty when valid
//
// The package exposes constants for IDs (e.g., dbcapabilities.PostgreSQL) and a
// registry `All` for advanced consumers.
package dbcapabilities
