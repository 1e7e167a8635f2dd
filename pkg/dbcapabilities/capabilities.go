package dbcapabilities

import "strings"

// DatabaseID is the canonical identifier for a database technology supported
// by dbbridge. Use these constants to look up capability information.
type DatabaseID string

const (
	PostgreSQL DatabaseID = "postgres"
	MySQL      DatabaseID = "mysql"
	MongoDB    DatabaseID = "mongodb"
	Redis      DatabaseID = "redis"
)

// DataParadigm enumerates the primary data storage paradigms a database supports.
type DataParadigm string

const (
	ParadigmRelational DataParadigm = "relational" // Tables, schemas, SQL
	ParadigmDocument   DataParadigm = "document"   // Collections, documents
	ParadigmKeyValue   DataParadigm = "keyvalue"   // Key/Value
	ParadigmTimeSeries DataParadigm = "timeseries" // Time-series specialized
)

// CapabilityID identifies one entry in the global capability set.
// Every backend descriptor marks every capability as supported or not.
type CapabilityID string

const (
	CapTransactions CapabilityID = "transactions"
	CapSavepoints   CapabilityID = "savepoints"
	CapSchemas      CapabilityID = "schemas"
	CapIndexes      CapabilityID = "indexes"
	CapConstraints  CapabilityID = "constraints"
	CapRawSQL       CapabilityID = "raw_sql"
	CapPooling      CapabilityID = "connection_pooling"
	CapStreaming    CapabilityID = "streaming"
)

// AllCapabilityIDs returns the global capability set in stable order.
func AllCapabilityIDs() []CapabilityID {
	return []CapabilityID{
		CapTransactions,
		CapSavepoints,
		CapSchemas,
		CapIndexes,
		CapConstraints,
		CapRawSQL,
		CapPooling,
		CapStreaming,
	}
}

// CapabilitySupport records whether a backend supports one capability.
// Unsupported entries must carry a human-readable reason.
type CapabilitySupport struct {
	Supported bool   `json:"supported"`
	Reason    string `json:"reason,omitempty"`
}

// Capability describes what a database supports in a way that callers can
// consume uniformly before attempting an operation.
type Capability struct {
	// Human-friendly vendor or product name, e.g., "PostgreSQL".
	Name string `json:"name"`

	// Canonical ID used across the codebase (see DatabaseID constants), e.g., "postgres".
	ID DatabaseID `json:"id"`

	// Default TCP port when a connection string omits one.
	DefaultPort int `json:"defaultPort"`

	// Whether the database exposes a built-in/system database and its typical names.
	HasSystemDatabase bool     `json:"hasSystemDatabase"`
	SystemDatabases   []string `json:"systemDatabases,omitempty"`

	// Primary data storage paradigms supported.
	Paradigms []DataParadigm `json:"paradigms"`

	// Common aliases (URI schemes, driver names, env labels) that map to this database.
	Aliases []string `json:"aliases,omitempty"`

	// Capabilities maps every CapabilityID in the global set to its support entry.
	Capabilities map[CapabilityID]CapabilitySupport `json:"capabilities"`
}

// Supports reports whether the capability map marks the given capability supported.
func (c Capability) Supports(id CapabilityID) bool {
	return c.Capabilities[id].Supported
}

// UnsupportedReason returns the reason a capability is unsupported.
// The boolean is false when the capability is supported or unknown.
func (c Capability) UnsupportedReason(id CapabilityID) (string, bool) {
	s, ok := c.Capabilities[id]
	if !ok || s.Supported {
		return "", false
	}
	return s.Reason, true
}

func supported() CapabilitySupport {
	return CapabilitySupport{Supported: true}
}

func unsupported(reason string) CapabilitySupport {
	return CapabilitySupport{Supported: false, Reason: reason}
}

// All is a registry of capabilities keyed by the canonical database ID.
var All = map[DatabaseID]Capability{
	PostgreSQL: {
		Name:              "PostgreSQL",
		ID:                PostgreSQL,
		DefaultPort:       5432,
		HasSystemDatabase: true,
		SystemDatabases:   []string{"postgres"},
		Paradigms:         []DataParadigm{ParadigmRelational},
		Aliases:           []string{"postgresql", "pgsql"},
		Capabilities: map[CapabilityID]CapabilitySupport{
			CapTransactions: supported(),
			CapSavepoints:   supported(),
			CapSchemas:      supported(),
			CapIndexes:      supported(),
			CapConstraints:  supported(),
			CapRawSQL:       supported(),
			CapPooling:      supported(),
			CapStreaming:    supported(),
		},
	},
	MySQL: {
		Name:              "MySQL",
		ID:                MySQL,
		DefaultPort:       3306,
		HasSystemDatabase: true,
		SystemDatabases:   []string{"mysql"},
		Paradigms:         []DataParadigm{ParadigmRelational},
		Aliases:           []string{"aurora-mysql"},
		Capabilities: map[CapabilityID]CapabilitySupport{
			CapTransactions: supported(),
			CapSavepoints:   supported(),
			CapSchemas:      unsupported("MySQL treats schema and database as the same namespace; use database listing instead"),
			CapIndexes:      supported(),
			CapConstraints:  supported(),
			CapRawSQL:       supported(),
			CapPooling:      supported(),
			CapStreaming:    supported(),
		},
	},
	MongoDB: {
		Name:              "MongoDB",
		ID:                MongoDB,
		DefaultPort:       27017,
		HasSystemDatabase: true,
		SystemDatabases:   []string{"admin"},
		Paradigms:         []DataParadigm{ParadigmDocument},
		Aliases:           []string{"mongo", "mongodb+srv"},
		Capabilities: map[CapabilityID]CapabilitySupport{
			CapTransactions: unsupported("multi-document transactions require a replica set or sharded cluster deployment"),
			CapSavepoints:   unsupported("the MongoDB wire protocol has no savepoint concept"),
			CapSchemas:      unsupported("collections live directly under the database; there is no schema level"),
			CapIndexes:      supported(),
			CapConstraints:  unsupported("MongoDB enforces validation rules, not relational constraints"),
			CapRawSQL:       unsupported("MongoDB has no SQL dialect; use the structured data operations"),
			CapPooling:      supported(),
			CapStreaming:    supported(),
		},
	},
	Redis: {
		Name:              "Redis",
		ID:                Redis,
		DefaultPort:       6379,
		HasSystemDatabase: false,
		Paradigms:         []DataParadigm{ParadigmKeyValue, ParadigmTimeSeries},
		Aliases:           []string{"rediss"},
		Capabilities: map[CapabilityID]CapabilitySupport{
			CapTransactions: unsupported("MULTI/EXEC batches commands but cannot run interactive transactional work"),
			CapSavepoints:   unsupported("Redis has no transaction savepoints"),
			CapSchemas:      unsupported("the keyspace is flat; there are no schema namespaces"),
			CapIndexes:      unsupported("Redis keeps no secondary index catalog"),
			CapConstraints:  unsupported("Redis has no constraint concept"),
			CapRawSQL:       unsupported("Redis speaks commands, not SQL"),
			CapPooling:      supported(),
			CapStreaming:    supported(),
		},
	},
}

// nameToID is a normalized lookup index from any known name/alias to the canonical DatabaseID.
var nameToID map[string]DatabaseID

func init() {
	nameToID = make(map[string]DatabaseID, len(All)*2)
	for id, cap := range All {
		// Canonical ID
		nameToID[strings.ToLower(string(id))] = id
		// Also record vendor/product name
		if cap.Name != "" {
			nameToID[strings.ToLower(cap.Name)] = id
		}
		// Aliases
		for _, a := range cap.Aliases {
			if a == "" {
				continue
			}
			nameToID[strings.ToLower(a)] = id
		}
	}
}

// ParseID attempts to resolve an arbitrary database name (canonical id, alias, or product name)
// to a canonical DatabaseID. Returns false if unknown.
func ParseID(name string) (DatabaseID, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", false
	}
	id, ok := nameToID[n]
	return id, ok
}

// GetByName returns the Capability by looking up using a free-form name (id or alias).
func GetByName(name string) (Capability, bool) {
	if id, ok := ParseID(name); ok {
		return Get(id)
	}
	return Capability{}, false
}

// IDs returns the list of all known database IDs.
func IDs() []DatabaseID {
	out := make([]DatabaseID, 0, len(All))
	for id := range All {
		out = append(out, id)
	}
	return out
}

// Get returns capabilities for the given ID and a boolean indicating existence.
func Get(id DatabaseID) (Capability, bool) {
	c, ok := All[id]
	return c, ok
}

// MustGet returns capabilities for the given ID and panics if not found.
func MustGet(id DatabaseID) Capability {
	c, ok := Get(id)
	if !ok {
		panic("dbcapabilities: unknown database id: " + string(id))
	}
	return c
}

// SupportsParadigm reports whether the database supports a given data paradigm.
func SupportsParadigm(id DatabaseID, p DataParadigm) bool {
	c, ok := Get(id)
	if !ok {
		return false
	}
	for _, dp := range c.Paradigms {
		if dp == p {
			return true
		}
	}
	return false
}

// HasSystemDB is a convenience accessor for HasSystemDatabase.
func HasSystemDB(id DatabaseID) bool {
	c, ok := Get(id)
	return ok && c.HasSystemDatabase
}

// HasCapability reports whether the backend supports the capability.
// It never fails: unknown backends and unknown capabilities report false.
func HasCapability(id DatabaseID, cap CapabilityID) bool {
	c, ok := Get(id)
	if !ok {
		return false
	}
	return c.Supports(cap)
}
