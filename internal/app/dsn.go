package app

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// dsnSummary is the credential-free view of a database DSN.
type dsnSummary struct {
	Type        string
	Host        string
	Port        int
	User        string
	Name        string
	SSLMode     string
	Path        string
	PasswordSet bool
}

func (s dsnSummary) String() string {
	if s.Type == "sqlite" {
		return "sqlite path=" + s.Path
	}
	return fmt.Sprintf("postgres host=%s port=%d user=%s db=%s sslmode=%s", s.Host, s.Port, s.User, s.Name, s.SSLMode)
}

// describeDSN returns a log-safe description of dsn.
func describeDSN(dsn string) string {
	summary, err := summarizeDSN(dsn)
	if err != nil {
		return "unrecognized dsn"
	}
	return summary.String()
}

func summarizeDSN(dsn string) (dsnSummary, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return dsnSummary{}, fmt.Errorf("empty dsn")
	}

	lowered := strings.ToLower(trimmed)
	if strings.HasPrefix(lowered, "host=") {
		return summarizeKeyValueDSN(trimmed), nil
	}
	if !strings.HasPrefix(lowered, "postgres://") && !strings.HasPrefix(lowered, "postgresql://") {
		pathPart := trimmed
		if strings.HasPrefix(lowered, "file:") {
			pathPart = trimmed[len("file:"):]
		}
		pathPart, _, _ = strings.Cut(pathPart, "?")
		return dsnSummary{Type: "sqlite", Path: strings.TrimSpace(pathPart)}, nil
	}

	u, errParse := url.Parse(trimmed)
	if errParse != nil {
		return dsnSummary{}, fmt.Errorf("parse dsn: %w", errParse)
	}

	port := 5432
	if rawPort := strings.TrimSpace(u.Port()); rawPort != "" {
		parsedPort, errPort := strconv.Atoi(rawPort)
		if errPort != nil {
			return dsnSummary{}, fmt.Errorf("parse port: %w", errPort)
		}
		port = parsedPort
	}

	username := ""
	passwordSet := false
	if u.User != nil {
		username = strings.TrimSpace(u.User.Username())
		_, passwordSet = u.User.Password()
	}

	sslMode := strings.TrimSpace(u.Query().Get("sslmode"))
	if sslMode == "" {
		sslMode = "disable"
	}

	return dsnSummary{
		Type:        "postgres",
		Host:        strings.TrimSpace(u.Hostname()),
		Port:        port,
		User:        username,
		Name:        strings.TrimSpace(strings.TrimPrefix(u.Path, "/")),
		SSLMode:     sslMode,
		PasswordSet: passwordSet,
	}, nil
}

func summarizeKeyValueDSN(dsn string) dsnSummary {
	summary := dsnSummary{Type: "postgres", Port: 5432, SSLMode: "disable"}
	for _, field := range strings.Fields(dsn) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch strings.ToLower(key) {
		case "host":
			summary.Host = value
		case "port":
			if port, err := strconv.Atoi(value); err == nil {
				summary.Port = port
			}
		case "user":
			summary.User = value
		case "dbname":
			summary.Name = value
		case "sslmode":
			summary.SSLMode = value
		case "password":
			summary.PasswordSet = value != ""
		}
	}
	return summary
}
