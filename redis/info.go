package redis

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var numericValue = regexp.MustCompile(`^-?\d+(\.\d+)?([eE][-+]?\d+)?$`)

// ServerInfo is the parsed INFO reply. Numeric values are float64, the rest strings.
type ServerInfo map[string]interface{}

// Float returns a numeric field.
func (i ServerInfo) Float(key string) (float64, bool) {
	v, ok := i[key].(float64)
	return v, ok
}

// String returns a non-numeric field.
func (i ServerInfo) String(key string) (string, bool) {
	v, ok := i[key].(string)
	return v, ok
}

// ParseInfo reads key:value lines. Section headers, blank lines and lines
// without a separator are skipped.
func ParseInfo(raw string) ServerInfo {
	info := make(ServerInfo)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok || key == "" {
			continue
		}
		if numericValue.MatchString(value) {
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				info[key] = f
				continue
			}
		}
		info[key] = value
	}
	return info
}

// Info runs INFO and parses the reply.
func (c *Connection) Info(ctx context.Context, sections ...string) (ServerInfo, error) {
	client, err := c.Client()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout)
	defer cancel()

	raw, err := client.Info(ctx, sections...).Result()
	if err != nil {
		return nil, ErrInfo.Wrap(err)
	}
	return ParseInfo(raw), nil
}

// redactURL hides the password for logging.
func redactURL(raw string) string {
	u, err := url.Parse(strings.Replace(raw, clusterMarker, "", 1))
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
