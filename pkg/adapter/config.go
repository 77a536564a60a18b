package adapter

// ConnectionConfig contains the configuration for a single-database
// connection. It is a unified configuration shared by all engines; fields an
// engine does not use are ignored.
type ConnectionConfig struct {
	// Connection metadata
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`

	// Database type, e.g. "postgres", "mysql"
	ConnectionType string `json:"connectionType"`

	// Connection details. Password is never serialized.
	Host         string `json:"host"`
	Port         int    `json:"port"`
	Username     string `json:"username,omitempty"`
	Password     string `json:"-"`
	DatabaseName string `json:"databaseName"`

	// SSL/TLS configuration
	SSL         bool    `json:"ssl,omitempty"`
	SSLMode     string  `json:"sslMode,omitempty"` // verify-full, require, etc.
	SSLCert     *string `json:"sslCert,omitempty"`
	SSLKey      *string `json:"sslKey,omitempty"`
	SSLRootCert *string `json:"sslRootCert,omitempty"`

	// Engine-specific options (use sparingly)
	Options map[string]interface{} `json:"options,omitempty"`
}

// InstanceConfig contains the configuration for a server-level connection.
type InstanceConfig struct {
	// Connection metadata
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`

	// Database type
	ConnectionType string `json:"connectionType"`

	// Connection details. DatabaseName is the maintenance database used for
	// the server-level connection (postgres, mysql, master, admin).
	// Password is never serialized.
	Host         string `json:"host"`
	Port         int    `json:"port"`
	Username     string `json:"username,omitempty"`
	Password     string `json:"-"`
	DatabaseName string `json:"databaseName,omitempty"`

	// SSL/TLS configuration
	SSL         bool    `json:"ssl,omitempty"`
	SSLMode     string  `json:"sslMode,omitempty"`
	SSLCert     *string `json:"sslCert,omitempty"`
	SSLKey      *string `json:"sslKey,omitempty"`
	SSLRootCert *string `json:"sslRootCert,omitempty"`

	// Engine-specific options
	Options map[string]interface{} `json:"options,omitempty"`
}

// DatabaseConfig derives a per-database ConnectionConfig from an instance
// configuration, reusing the instance credentials.
func (c InstanceConfig) DatabaseConfig(databaseName string) ConnectionConfig {
	return ConnectionConfig{
		Name:           c.Name,
		ConnectionType: c.ConnectionType,
		Host:           c.Host,
		Port:           c.Port,
		Username:       c.Username,
		Password:       c.Password,
		DatabaseName:   databaseName,
		SSL:            c.SSL,
		SSLMode:        c.SSLMode,
		SSLCert:        c.SSLCert,
		SSLKey:         c.SSLKey,
		SSLRootCert:    c.SSLRootCert,
		Options:        c.Options,
	}
}

// GetStringPtr returns a pointer to a string value, or nil if the string is empty.
func GetStringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// GetString returns the string value from a pointer, or empty string if nil.
func GetString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
