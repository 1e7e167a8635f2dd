package dbcapabilities

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// ConnectionDetails holds parsed connection information
type ConnectionDetails struct {
	DatabaseType DatabaseID        `json:"database_type"`
	Host         string            `json:"host"`
	Port         int               `json:"port"`
	Username     string            `json:"username"`
	Password     string            `json:"password,omitempty"`
	DatabaseName string            `json:"database_name"`
	SSL          bool              `json:"ssl"`
	SSLMode      string            `json:"ssl_mode,omitempty"`
	Parameters   map[string]string `json:"parameters,omitempty"`
}

// ValidationIssue describes a single rule violation found in a connection string.
type ValidationIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ParseConnectionString parses a connection string and returns connection details.
// The scheme selects the backend (aliases included, e.g. postgresql, rediss,
// mongodb+srv), a missing port takes the backend default, and SSL parameters
// are folded into the SSL/SSLMode fields. Query parameters that are not
// SSL-related pass through opaquely in Parameters.
func ParseConnectionString(connectionString string) (*ConnectionDetails, error) {
	if connectionString == "" {
		return nil, fmt.Errorf("connection string cannot be empty")
	}

	parsedURL, err := url.Parse(connectionString)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string format: %v", err)
	}

	scheme := strings.ToLower(parsedURL.Scheme)
	if scheme == "" {
		return nil, fmt.Errorf("connection string must include a scheme (e.g., postgresql://)")
	}

	dbType, ok := ParseID(scheme)
	if !ok {
		return nil, fmt.Errorf("unsupported database type: %s", scheme)
	}

	capability := MustGet(dbType)

	details := &ConnectionDetails{
		DatabaseType: dbType,
		Parameters:   make(map[string]string),
	}

	if parsedURL.Hostname() == "" {
		return nil, fmt.Errorf("host is required in connection string")
	}
	details.Host = parsedURL.Hostname()

	if parsedURL.Port() != "" {
		port, err := strconv.Atoi(parsedURL.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid port number: %s", parsedURL.Port())
		}
		details.Port = port
	} else {
		details.Port = capability.DefaultPort
	}

	if parsedURL.User != nil {
		details.Username = parsedURL.User.Username()
		if password, hasPassword := parsedURL.User.Password(); hasPassword {
			details.Password = password
		}
	}

	path := strings.Trim(parsedURL.Path, "/")
	if path != "" {
		details.DatabaseName = path
	}

	queryParams := parsedURL.Query()
	for key, values := range queryParams {
		if len(values) > 0 {
			details.Parameters[key] = values[0]
		}
	}

	// SRV discovery is carried as a parameter so BuildConnectionString can
	// restore the mongodb+srv scheme.
	if scheme == "mongodb+srv" {
		details.Parameters["srv"] = "true"
	}

	parseSSLConfiguration(details, scheme, queryParams)

	if details.Username == "" {
		return nil, fmt.Errorf("username is required in connection string")
	}

	return details, nil
}

// parseSSLConfiguration folds SSL-related query parameters into the SSL and
// SSLMode fields. Consumed parameters are removed from the passthrough map.
func parseSSLConfiguration(details *ConnectionDetails, scheme string, queryParams url.Values) {
	switch details.DatabaseType {
	case PostgreSQL:
		sslMode := queryParams.Get("sslmode")
		if sslMode == "" && queryParams.Get("ssl") == "true" {
			sslMode = "require"
		}
		if sslMode == "" {
			sslMode = "prefer" // PostgreSQL default
		}
		details.SSLMode = sslMode
		details.SSL = sslMode != "disable"
		delete(details.Parameters, "sslmode")
		delete(details.Parameters, "ssl")

	case MySQL:
		tls := queryParams.Get("tls")
		if tls == "" && queryParams.Get("ssl") == "true" {
			tls = "true"
		}
		details.SSL = tls == "true" || tls == "skip-verify"
		if details.SSL {
			if tls == "skip-verify" {
				details.SSLMode = "prefer"
			} else {
				details.SSLMode = "require"
			}
		} else {
			details.SSLMode = "disable"
		}
		delete(details.Parameters, "tls")
		delete(details.Parameters, "ssl")

	case MongoDB:
		tls := queryParams.Get("tls")
		ssl := queryParams.Get("ssl") // Legacy parameter
		if tls != "" {
			details.SSL = tls == "true"
		} else if ssl != "" {
			details.SSL = ssl == "true"
		}
		if details.SSL {
			details.SSLMode = "require"
			if queryParams.Get("tlsInsecure") == "true" {
				details.SSLMode = "prefer"
			}
		} else {
			details.SSLMode = "disable"
		}
		delete(details.Parameters, "tls")
		delete(details.Parameters, "ssl")
		delete(details.Parameters, "tlsInsecure")

	case Redis:
		if scheme == "rediss" || queryParams.Get("ssl") == "true" {
			details.SSL = true
			details.SSLMode = "require"
		} else {
			details.SSLMode = "disable"
		}
		delete(details.Parameters, "ssl")

	default:
		details.SSL = queryParams.Get("ssl") == "true"
		if details.SSL {
			details.SSLMode = "require"
		} else {
			details.SSLMode = "disable"
		}
		delete(details.Parameters, "ssl")
	}
}

// BuildConnectionString builds a connection string from connection details.
// It is the inverse of ParseConnectionString: the SSL flag is emitted in the
// backend's native vocabulary and passthrough parameters are appended.
func BuildConnectionString(details *ConnectionDetails) (string, error) {
	if details == nil {
		return "", fmt.Errorf("connection details cannot be nil")
	}

	capability, ok := Get(details.DatabaseType)
	if !ok {
		return "", fmt.Errorf("unsupported database type: %s", details.DatabaseType)
	}
	if details.Host == "" {
		return "", fmt.Errorf("host is required to build a connection string")
	}
	if details.Username == "" {
		return "", fmt.Errorf("username is required to build a connection string")
	}

	port := details.Port
	if port == 0 {
		port = capability.DefaultPort
	}

	scheme := string(details.DatabaseType)
	includePort := true

	params := url.Values{}
	for k, v := range details.Parameters {
		params.Set(k, v)
	}

	switch details.DatabaseType {
	case PostgreSQL:
		mode := details.SSLMode
		if mode == "" {
			if details.SSL {
				mode = "require"
			} else {
				mode = "disable"
			}
		}
		params.Set("sslmode", mode)

	case MySQL:
		if details.SSL {
			if details.SSLMode == "prefer" {
				params.Set("tls", "skip-verify")
			} else {
				params.Set("tls", "true")
			}
		}

	case MongoDB:
		if params.Get("srv") == "true" {
			scheme = "mongodb+srv"
			params.Del("srv")
			// SRV connection strings must not carry a port
			includePort = false
		}
		if details.SSL {
			params.Set("tls", "true")
		}

	case Redis:
		if details.SSL {
			scheme = "rediss"
		}
	}

	u := &url.URL{Scheme: scheme}
	if includePort {
		u.Host = net.JoinHostPort(details.Host, strconv.Itoa(port))
	} else {
		u.Host = details.Host
	}
	if details.Password != "" {
		u.User = url.UserPassword(details.Username, details.Password)
	} else {
		u.User = url.User(details.Username)
	}
	if details.DatabaseName != "" {
		u.Path = "/" + details.DatabaseName
	}
	u.RawQuery = params.Encode()

	return u.String(), nil
}

// ValidateConnectionString checks a connection string against the baseline
// connection rules and returns every violation found, not just the first.
// An empty slice means the connection string is valid.
func ValidateConnectionString(connectionString string) []ValidationIssue {
	if strings.TrimSpace(connectionString) == "" {
		return []ValidationIssue{{Field: "uri", Message: "connection string cannot be empty"}}
	}

	parsedURL, err := url.Parse(connectionString)
	if err != nil {
		return []ValidationIssue{{Field: "uri", Message: fmt.Sprintf("invalid connection string format: %v", err)}}
	}

	var issues []ValidationIssue

	scheme := strings.ToLower(parsedURL.Scheme)
	if scheme == "" {
		issues = append(issues, ValidationIssue{Field: "scheme", Message: "connection string must include a scheme (e.g., postgresql://)"})
	} else if _, ok := ParseID(scheme); !ok {
		issues = append(issues, ValidationIssue{Field: "scheme", Message: fmt.Sprintf("unsupported database type: %s", scheme)})
	}

	if parsedURL.Hostname() == "" {
		issues = append(issues, ValidationIssue{Field: "host", Message: "host is required"})
	}

	if portStr := parsedURL.Port(); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 1 || port > 65535 {
			issues = append(issues, ValidationIssue{Field: "port", Message: fmt.Sprintf("port must be between 1 and 65535, got %s", portStr)})
		}
	}

	if strings.Trim(parsedURL.Path, "/") == "" {
		issues = append(issues, ValidationIssue{Field: "database", Message: "database name is required"})
	}

	if parsedURL.User == nil || parsedURL.User.Username() == "" {
		issues = append(issues, ValidationIssue{Field: "username", Message: "username is required"})
	}

	return issues
}
