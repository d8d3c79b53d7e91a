// Package cache keeps API responses in Redis so repeated runs against the
// same query do not spend rate-limit budget.
//
// The cache is optional and only active when a Redis address is configured
// (--redis-addr or REDIS_ADDR). Only successful GET responses are cached.
//
//	mgr, err := cache.Connect(ctx, "localhost:6379", 0, 15*time.Minute, log)
//	if err != nil {
//		return err
//	}
//	defer mgr.Close()
//	client := httpclient.New(httpclient.Options{Service: "arxiv", Cache: mgr})
package cache
