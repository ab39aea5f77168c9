// Package httputil provides retry helpers for HTTP clients.
//
// # Retry
//
// [Retry] re-runs an operation with exponential backoff. Only errors wrapped
// with [Retryable] are retried; everything else is returned immediately:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return httputil.Retryable(err)
//	    }
//	    defer resp.Body.Close()
//	    if resp.StatusCode >= 500 {
//	        return httputil.Retryable(fmt.Errorf("server error %d", resp.StatusCode))
//	    }
//	    return nil
//	})
//
// The delay doubles after each failure.
package httputil
