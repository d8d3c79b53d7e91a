package xapi

import "encoding/json"

// User is the subset of the X user object we request
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`

	Raw json.RawMessage `json:"-"`
}

// PublicMetrics are the engagement counters on a post
type PublicMetrics struct {
	LikeCount    int `json:"like_count"`
	RetweetCount int `json:"retweet_count"`
	ReplyCount   int `json:"reply_count"`
	QuoteCount   int `json:"quote_count"`
}

// Tweet is one post from the user timeline
type Tweet struct {
	ID            string         `json:"id"`
	Text          string         `json:"text"`
	CreatedAt     string         `json:"created_at,omitempty"`
	AuthorID      string         `json:"author_id,omitempty"`
	PublicMetrics *PublicMetrics `json:"public_metrics,omitempty"`

	// Raw keeps the full API object for --raw output
	Raw json.RawMessage `json:"-"`
}

// APIError is an entry of the top-level "errors" array
type APIError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
}

type userResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []APIError      `json:"errors"`
}

type timelineResponse struct {
	Data []json.RawMessage `json:"data"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
	Errors []APIError `json:"errors"`
}

// FormattedTweet is the compact per-post record of the default output
type FormattedTweet struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
	Likes     int    `json:"likes"`
	Retweets  int    `json:"retweets"`
	Replies   int    `json:"replies"`
}

// UserSummary is the user block of the default output
type UserSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Output is the default document written by x-posts
type Output struct {
	User       UserSummary      `json:"user"`
	TweetCount int              `json:"tweet_count"`
	Tweets     []FormattedTweet `json:"tweets"`
}

// RawOutput carries the API objects untouched
type RawOutput struct {
	User   json.RawMessage   `json:"user"`
	Tweets []json.RawMessage `json:"tweets"`
}
