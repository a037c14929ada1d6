package gcp

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/yungbote/persona-backend/internal/config"
)

// ClientOptions builds credential options from config. Inline JSON wins over a file path;
// with neither, the SDK falls back to application default credentials.
func ClientOptions(cfg config.GCPConfig) []option.ClientOption {
	opts := []option.ClientOption{}
	if creds := strings.TrimSpace(cfg.CredentialsJSON); creds != "" {
		return append(opts, option.WithCredentialsJSON([]byte(creds)))
	}
	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		if strings.HasPrefix(path, "{") {
			return append(opts, option.WithCredentialsJSON([]byte(path)))
		}
		return append(opts, option.WithCredentialsFile(path))
	}
	return opts
}
