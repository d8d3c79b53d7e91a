package xbrowser

const xHost = "https://x.com"

// selectors
const (
	tweetSelector    = `article[data-testid="tweet"]`
	tweetTextSel     = `[data-testid="tweetText"]`
	userNameSelector = `[data-testid="UserName"]`
	loginWallSel     = `[data-testid="loginButton"], a[href="/login"]`
	replySelector    = `[data-testid="reply"]`
	repostSelector   = `[data-testid="retweet"], [data-testid="unretweet"]`
	likeSelector     = `[data-testid="like"], [data-testid="unlike"]`
)
