package database

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/snowflakedb/gosnowflake"
	"github.com/youmark/pkcs8"

	"github.com/dbsmedya/warehouse-to-go/internal/config"
)

// ErrInvalidPrivateKey is returned when the key file holds no usable RSA key.
var ErrInvalidPrivateKey = errors.New("invalid private key")

// SnowflakeConfig builds the gosnowflake configuration. Key-pair (JWT)
// authentication is used when a private key path is set, otherwise the password.
func SnowflakeConfig(cfg *config.WarehouseConfig) (*gosnowflake.Config, error) {
	sf := &gosnowflake.Config{
		Account:                cfg.Account,
		User:                   cfg.User,
		Database:               cfg.Database,
		Schema:                 cfg.Schema,
		Warehouse:              cfg.Warehouse,
		Role:                   cfg.Role,
		ClientSessionKeepAlive: cfg.ClientSessionKeepAlive,
		Application:            "warehouse-to-go",
	}
	if cfg.Host != "" {
		sf.Host = cfg.Host
	}
	if cfg.QueryTag != "" {
		tag := cfg.QueryTag
		sf.Params = map[string]*string{"query_tag": &tag}
	}

	switch cfg.AuthMethod() {
	case "private_key":
		key, err := LoadPrivateKey(cfg.PrivateKeyPath, cfg.PrivateKeyPassphrase)
		if err != nil {
			return nil, err
		}
		sf.Authenticator = gosnowflake.AuthTypeJwt
		sf.PrivateKey = key
	case "password":
		sf.Password = cfg.Password
	default:
		return nil, config.ErrNoAuthMethod
	}

	return sf, nil
}

// LoadPrivateKey reads a PEM encoded RSA key. PKCS#8 keys may be encrypted with
// passphrase; PKCS#1 ("RSA PRIVATE KEY") keys are read as is.
func LoadPrivateKey(path, passphrase string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	return ParsePrivateKey(raw, passphrase)
}

// ParsePrivateKey decodes the first PEM block of raw.
func ParsePrivateKey(raw []byte, passphrase string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrInvalidPrivateKey)
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
		}
		return key, nil
	case "PRIVATE KEY", "ENCRYPTED PRIVATE KEY":
		var pass []byte
		if passphrase != "" {
			pass = []byte(passphrase)
		}
		key, err := pkcs8.ParsePKCS8PrivateKeyRSA(block.Bytes, pass)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unsupported PEM type %q", ErrInvalidPrivateKey, block.Type)
	}
}
