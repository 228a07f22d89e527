package slack

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
)

// DefaultCacheTTL is the default TTL for email to user lookups
const DefaultCacheTTL = 10 * time.Minute

// cacheEntry holds a resolved user with expiration
type cacheEntry struct {
	user      *User
	expiresAt time.Time
}

// client implements Service interface
type client struct {
	api      *slack.Client
	cacheTTL time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// Option is a functional option for client configuration
type Option func(*clientConfig)

type clientConfig struct {
	cacheTTL time.Duration
	apiURL   string
}

// WithCacheTTL sets the TTL for email lookups
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *clientConfig) {
		c.cacheTTL = ttl
	}
}

// WithAPIURL points the client at another Slack API endpoint, e.g. a test server
func WithAPIURL(url string) Option {
	return func(c *clientConfig) {
		c.apiURL = url
	}
}

// New creates a new Slack service with the provided bot token
func New(token string, opts ...Option) (Service, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required")
	}

	cfg := &clientConfig{cacheTTL: DefaultCacheTTL}
	for _, opt := range opts {
		opt(cfg)
	}

	var apiOpts []slack.Option
	if cfg.apiURL != "" {
		apiOpts = append(apiOpts, slack.OptionAPIURL(strings.TrimRight(cfg.apiURL, "/")+"/"))
	}

	return &client{
		api:      slack.New(token, apiOpts...),
		cacheTTL: cfg.cacheTTL,
		cache:    make(map[string]cacheEntry),
	}, nil
}

func (c *client) LookupUserByEmail(ctx context.Context, email string) (*User, error) {
	key := strings.ToLower(email)
	now := time.Now()

	c.mu.RLock()
	entry, ok := c.cache[key]
	c.mu.RUnlock()
	if ok && now.Before(entry.expiresAt) {
		return entry.user, nil
	}

	user, err := c.api.GetUserByEmailContext(ctx, email)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to look up Slack user by email", goerr.V("email", email))
	}

	resolved := &User{
		ID:       user.ID,
		Name:     user.Name,
		RealName: user.RealName,
		Email:    user.Profile.Email,
	}

	c.mu.Lock()
	c.cache[key] = cacheEntry{user: resolved, expiresAt: now.Add(c.cacheTTL)}
	c.mu.Unlock()

	return resolved, nil
}

func (c *client) PostMessage(ctx context.Context, channelID string, blocks []slack.Block, text string) (string, error) {
	_, ts, err := c.api.PostMessageContext(ctx, channelID,
		slack.MsgOptionBlocks(blocks...),
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to post message", goerr.V("channel_id", channelID))
	}
	return ts, nil
}
