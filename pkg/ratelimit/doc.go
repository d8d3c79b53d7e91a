// Package ratelimit paces requests to third-party APIs.
//
// Interval is the sleep-between-pages pacer used by every paginated fetch
// (500ms for X, 3s for arXiv). TokenBucket caps bursts when artifact
// downloads run on more than one worker.
//
//	pacer := ratelimit.ForDelay(cfg.Arxiv.APIDelay)
//	for page := range pages {
//		if err := pacer.Wait(ctx); err != nil {
//			return err
//		}
//		...
//	}
package ratelimit
