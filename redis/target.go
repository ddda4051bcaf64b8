package redis

import (
	"context"
	"crypto/tls"
	"net"
	"net/url"
	"strings"

	"github.com/redis/go-redis/v9"
)

const clusterMarker = "+cluster"

// Target is a parsed connection URL.
type Target struct {
	Cluster        bool
	Options        *redis.Options        // single node
	ClusterOptions *redis.ClusterOptions // cluster
}

// Addrs lists the configured node addresses.
func (t Target) Addrs() []string {
	if t.Cluster {
		return t.ClusterOptions.Addrs
	}
	return []string{t.Options.Addr}
}

// ParseTarget detects cluster URLs by the "+cluster" scheme suffix or a
// cluster=true query parameter. Cluster seeds may be listed comma-separated
// in the host part or as repeated addr= parameters.
func ParseTarget(raw string) (Target, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return Target{}, ErrInvalidURL.WithMsgf("invalid remote cache url %q: missing scheme", raw)
	}

	cluster := false
	if strings.HasSuffix(scheme, clusterMarker) {
		cluster = true
		scheme = strings.TrimSuffix(scheme, clusterMarker)
	}

	authority, tail := rest, ""
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		authority, tail = rest[:i], rest[i:]
	}
	userinfo, hosts := "", authority
	if i := strings.LastIndex(authority, "@"); i >= 0 {
		userinfo, hosts = authority[:i+1], authority[i+1:]
	}
	seeds := strings.Split(hosts, ",")

	path, rawQuery, _ := strings.Cut(tail, "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return Target{}, ErrInvalidURL.Wrapf(err, "invalid remote cache url %q", raw)
	}
	if v := query.Get("cluster"); v != "" {
		cluster = cluster || v == "true" || v == "1"
		query.Del("cluster")
	}

	if !cluster {
		if len(seeds) > 1 {
			return Target{}, ErrInvalidURL.WithMsgf("invalid remote cache url %q: multiple hosts require cluster mode", raw)
		}
		opts, err := redis.ParseURL(rebuild(scheme, userinfo, seeds[0], path, query))
		if err != nil {
			return Target{}, ErrInvalidURL.Wrapf(err, "invalid remote cache url %q", raw)
		}
		return Target{Options: opts}, nil
	}

	for _, seed := range seeds[1:] {
		query.Add("addr", seed)
	}
	// cluster mode has no database index
	opts, err := redis.ParseClusterURL(rebuild(scheme, userinfo, seeds[0], "", query))
	if err != nil {
		return Target{}, ErrInvalidURL.Wrapf(err, "invalid remote cache url %q", raw)
	}
	return Target{Cluster: true, ClusterOptions: opts}, nil
}

func rebuild(scheme, userinfo, host, path string, query url.Values) string {
	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(userinfo)
	b.WriteString(host)
	b.WriteString(path)
	if len(query) > 0 {
		b.WriteString("?")
		b.WriteString(query.Encode())
	}
	return b.String()
}

// ClientFactory builds an unconnected client for cfg.
type ClientFactory func(cfg Config) (redis.UniversalClient, error)

// NewUniversalClient applies cfg's timeouts, pool size and address family on
// top of the URL options.
func NewUniversalClient(cfg Config) (redis.UniversalClient, error) {
	target, err := ParseTarget(cfg.URL)
	if err != nil {
		return nil, err
	}

	if target.Cluster {
		opts := target.ClusterOptions
		opts.Dialer = newDialer(cfg, opts.TLSConfig)
		opts.DialTimeout = cfg.ConnectTimeout
		opts.ReadTimeout = cfg.CommandTimeout
		opts.WriteTimeout = cfg.CommandTimeout
		opts.ContextTimeoutEnabled = true
		opts.PoolSize = cfg.PoolSize
		opts.MaxRetries = cfg.MaxRetries
		return redis.NewClusterClient(opts), nil
	}

	opts := target.Options
	opts.Dialer = newDialer(cfg, opts.TLSConfig)
	opts.DialTimeout = cfg.ConnectTimeout
	opts.ReadTimeout = cfg.CommandTimeout
	opts.WriteTimeout = cfg.CommandTimeout
	opts.ContextTimeoutEnabled = true
	opts.PoolSize = cfg.PoolSize
	opts.MaxRetries = cfg.MaxRetries
	return redis.NewClient(opts), nil
}

// newDialer pins the address family and keep-alive. A custom dialer replaces
// the go-redis one, so TLS has to be layered here.
func newDialer(cfg Config, tlsConfig *tls.Config) func(ctx context.Context, network, addr string) (net.Conn, error) {
	nd := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: cfg.KeepAlive,
	}
	family := cfg.Family
	if family == "" {
		family = "tcp"
	}

	if tlsConfig != nil {
		td := &tls.Dialer{NetDialer: nd, Config: tlsConfig}
		return func(ctx context.Context, _, addr string) (net.Conn, error) {
			return td.DialContext(ctx, family, addr)
		}
	}
	return func(ctx context.Context, _, addr string) (net.Conn, error) {
		return nd.DialContext(ctx, family, addr)
	}
}
