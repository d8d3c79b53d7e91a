// Package xapi reads a user's timeline from the X API v2.
package xapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	errs "socialfetch/pkg/errors"
	"socialfetch/pkg/httpclient"
	"socialfetch/pkg/logger"
	"socialfetch/pkg/paginate"
	"socialfetch/pkg/ratelimit"
)

const (
	// DefaultBaseURL is the public API root
	DefaultBaseURL = "https://api.x.com/2"

	// The timeline endpoint accepts 5..100 results per page
	minPageSize = 5
	maxPageSize = 100
)

// TweetFields are requested on every timeline page
var TweetFields = []string{
	"id", "text", "created_at", "author_id",
	"public_metrics", "entities", "referenced_tweets",
}

// Client talks to the X API
type Client struct {
	http    *httpclient.Client
	baseURL string
	pacer   ratelimit.Limiter
	logger  logger.Logger
}

// NewClient wraps an httpclient that already carries the bearer token
func NewClient(http *httpclient.Client, baseURL string, pacer ratelimit.Limiter, log logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Client{
		http:    http,
		baseURL: strings.TrimRight(baseURL, "/"),
		pacer:   pacer,
		logger:  log,
	}
}

// AuthHeaders returns the headers for bearer token auth
func AuthHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// NormalizeUsername strips a leading @ and surrounding whitespace
func NormalizeUsername(username string) string {
	return strings.TrimPrefix(strings.TrimSpace(username), "@")
}

// UserByUsername resolves a handle to its user object
func (c *Client) UserByUsername(ctx context.Context, username string) (*User, error) {
	username = NormalizeUsername(username)
	if username == "" {
		return nil, errs.New(errs.ErrorTypeValidation, "username is required")
	}

	endpoint := fmt.Sprintf("%s/users/by/username/%s", c.baseURL, url.PathEscape(username))
	query := url.Values{"user.fields": {"id,name,username"}}

	var resp userResponse
	if err := c.http.GetJSON(ctx, endpoint, query, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		msg := "user @" + username + " not found"
		if len(resp.Errors) > 0 && resp.Errors[0].Detail != "" {
			msg = resp.Errors[0].Detail
		}
		return nil, errs.New(errs.ErrorTypeNotFound, "%s", msg)
	}

	var user User
	if err := json.Unmarshal(resp.Data, &user); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, err, "failed to decode user")
	}
	if user.ID == "" {
		return nil, errs.New(errs.ErrorTypeParsing, "user object has no id")
	}
	user.Raw = resp.Data

	c.logger.InfoWithFields("Resolved user", map[string]interface{}{
		"username": user.Username,
		"name":     user.Name,
		"id":       user.ID,
	})
	return &user, nil
}

// TimelinePage fetches one page of the user's posts. The page size is
// clamped to the range the endpoint accepts; the paginator trims any excess.
func (c *Client) TimelinePage(ctx context.Context, req paginate.Request) (*paginate.Page[Tweet], error) {
	size := req.PageSize
	if size <= 0 || size > maxPageSize {
		size = maxPageSize
	}
	if size < minPageSize {
		size = minPageSize
	}

	query := url.Values{
		"max_results":  {strconv.Itoa(size)},
		"tweet.fields": {strings.Join(TweetFields, ",")},
	}
	if req.Cursor != "" {
		query.Set("pagination_token", req.Cursor)
	}

	endpoint := fmt.Sprintf("%s/users/%s/tweets", c.baseURL, url.PathEscape(req.Target))

	var resp timelineResponse
	if err := c.http.GetJSON(ctx, endpoint, query, &resp); err != nil {
		return nil, err
	}

	tweets := make([]Tweet, 0, len(resp.Data))
	for _, raw := range resp.Data {
		var t Tweet
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, errs.Wrap(errs.ErrorTypeParsing, err, "failed to decode tweet")
		}
		t.Raw = raw
		tweets = append(tweets, t)
	}

	return &paginate.Page[Tweet]{Items: tweets, Next: resp.Meta.NextToken}, nil
}

// UserTweets pages through the timeline until max posts are collected;
// max <= 0 collects everything the API exposes.
func (c *Client) UserTweets(ctx context.Context, userID string, max int) ([]Tweet, error) {
	res, err := paginate.Fetch(ctx, c.TimelinePage, paginate.Options{
		Target:   userID,
		Max:      max,
		PageSize: maxPageSize,
		Pacer:    c.pacer,
		Logger:   c.logger,
		Source:   "x",
	})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// FormatTweet flattens a post into the compact output record
func FormatTweet(t Tweet) FormattedTweet {
	f := FormattedTweet{
		ID:        t.ID,
		Text:      t.Text,
		CreatedAt: t.CreatedAt,
	}
	if f.CreatedAt == "" {
		f.CreatedAt = "N/A"
	}
	if t.PublicMetrics != nil {
		f.Likes = t.PublicMetrics.LikeCount
		f.Retweets = t.PublicMetrics.RetweetCount
		f.Replies = t.PublicMetrics.ReplyCount
	}
	return f
}

// BuildOutput assembles the document written by x-posts
func BuildOutput(user *User, tweets []Tweet, raw bool) interface{} {
	if raw {
		out := RawOutput{User: user.Raw, Tweets: make([]json.RawMessage, 0, len(tweets))}
		for _, t := range tweets {
			out.Tweets = append(out.Tweets, t.Raw)
		}
		return out
	}

	out := Output{
		User: UserSummary{
			ID:       user.ID,
			Name:     user.Name,
			Username: user.Username,
		},
		TweetCount: len(tweets),
		Tweets:     make([]FormattedTweet, 0, len(tweets)),
	}
	for _, t := range tweets {
		out.Tweets = append(out.Tweets, FormatTweet(t))
	}
	return out
}
