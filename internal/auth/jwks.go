package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrKeyNotFound = errors.New("jwks: key not found")

const (
	defaultJWKSRefresh = 15 * time.Minute
	// minimum gap between refreshes triggered by an unknown kid
	minOnDemandRefresh = 30 * time.Second
)

// KeySource resolves an RSA public key by kid.
type KeySource interface {
	Get(kid string) (*rsa.PublicKey, error)
}

type jwk struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS holds the identity service's signing keys by kid and keeps them fresh.
type JWKS struct {
	url    string
	client *http.Client
	stop   context.CancelFunc

	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	lastRefresh time.Time
}

var _ KeySource = (*JWKS)(nil)

// NewJWKS loads the key set from url and refreshes it every refreshInterval
// (15m when zero) until Close.
func NewJWKS(url string, refreshInterval time.Duration) (*JWKS, error) {
	if url == "" {
		return nil, errors.New("jwks: no url configured")
	}
	if refreshInterval <= 0 {
		refreshInterval = defaultJWKSRefresh
	}
	j := &JWKS{
		url: url,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		keys: map[string]*rsa.PublicKey{},
	}
	if err := j.refresh(context.Background()); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	j.stop = cancel
	go j.loop(ctx, refreshInterval)
	return j, nil
}

// NewStaticJWKS serves a fixed key set and never refreshes.
func NewStaticJWKS(keys map[string]*rsa.PublicKey) *JWKS {
	return &JWKS{keys: keys}
}

func (j *JWKS) loop(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if err := j.refresh(ctx); err != nil {
				log.Warn().Err(err).Msg("JWKS refresh failed, keeping previous keys")
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close stops background refresh.
func (j *JWKS) Close() {
	if j.stop != nil {
		j.stop()
	}
}

func (j *JWKS) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.url, nil)
	if err != nil {
		return err
	}
	resp, err := j.client.Do(req)
	if err != nil {
		return fmt.Errorf("jwks: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks: unexpected status %d", resp.StatusCode)
	}

	var set struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("jwks: decode: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := k.publicKey()
		if err != nil {
			return fmt.Errorf("jwks: key %s: %w", k.Kid, err)
		}
		keys[k.Kid] = pub
	}

	j.mu.Lock()
	j.keys = keys
	j.lastRefresh = time.Now()
	j.mu.Unlock()
	return nil
}

func (k jwk) publicKey() (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(new(big.Int).SetBytes(e).Int64())}, nil
}

// Get returns the key for kid. An unknown kid triggers at most one refresh
// per minOnDemandRefresh, so keys rotated in the identity service are picked
// up without waiting for the next tick.
func (j *JWKS) Get(kid string) (*rsa.PublicKey, error) {
	j.mu.RLock()
	p := j.keys[kid]
	recent := time.Since(j.lastRefresh) < minOnDemandRefresh
	j.mu.RUnlock()
	if p != nil {
		return p, nil
	}
	if j.url == "" || recent {
		return nil, ErrKeyNotFound
	}

	if err := j.refresh(context.Background()); err != nil {
		return nil, err
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	if p = j.keys[kid]; p == nil {
		return nil, ErrKeyNotFound
	}
	return p, nil
}
